package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// KnownDevice, bir kullanıcının daha önce giriş yaptığı cihazı temsil eder.
// Cihaz, IP + User-Agent kombinasyonunun hash'i ile tanınır.
type KnownDevice struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// DeviceFingerprint, IP ve User-Agent'tan cihaz parmak izi üretir.
// Format: hex(sha256(ip + "_" + user_agent)).
//
// Aynı (ip, ua) çifti her zaman aynı fingerprint'i verir — get-or-create
// bu sayede idempotent'tir.
func DeviceFingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "_" + userAgent))
	return hex.EncodeToString(sum[:])
}
