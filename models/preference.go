package models

import "time"

// NotificationPreference, kullanıcının kanal tercihlerini temsil eder.
// Kullanıcı başına tek satır (user_id PRIMARY KEY).
//
// Preference satırı OLMAYAN kullanıcıya hiçbir path'te bildirim üretilmez —
// comment fan-out'u da device alert'i de o alıcıyı atlar. Register akışı
// default satırı oluşturduğu için bu durum pratikte sadece legacy/elle
// silinmiş kayıtlarda görülür.
type NotificationPreference struct {
	UserID       string    `json:"user_id"`
	InAppEnabled bool      `json:"in_app_enabled"`
	EmailEnabled bool      `json:"email_enabled"`
	SMSEnabled   bool      `json:"sms_enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdatePreferenceRequest, PATCH /api/preferences isteği.
// Pointer field'lar partial update sağlar: nil → dokunma, değer → güncelle.
type UpdatePreferenceRequest struct {
	InAppEnabled *bool `json:"in_app_enabled"`
	EmailEnabled *bool `json:"email_enabled"`
	SMSEnabled   *bool `json:"sms_enabled"`
}

// Empty, istekte güncellenecek hiçbir field olup olmadığını kontrol eder.
func (r *UpdatePreferenceRequest) Empty() bool {
	return r.InAppEnabled == nil && r.EmailEnabled == nil && r.SMSEnabled == nil
}
