// Package sms, SMS kanalı için soyutlama katmanı sağlar.
//
// pkg/email ile aynı pattern: SMSSender interface + implementasyonlar.
// Şu an gerçek bir SMS sağlayıcı entegrasyonu yok — log-only sender
// production sözleşmesini (truncation, dönüş semantiği) aynen uygular,
// sağlayıcı eklendiğinde sadece yeni bir implementasyon yazılır.
package sms

import (
	"context"
	"log"
	"unicode/utf8"
)

// MaxMessageLength, tek SMS segmentinin karakter limiti.
// Daha uzun mesajlar gönderilmeden önce kırpılır.
const MaxMessageLength = 160

// SMSSender, SMS gönderimi için interface.
//
// Dönüş sözleşmesi EmailSender ile aynıdır:
//   - (true, nil): teslim edildi
//   - (false, nil): kalıcı ret (ör: numara yok) — caller kanalı kapatır
//   - (_, err): geçici hata — task queue retry eder
type SMSSender interface {
	Send(ctx context.Context, toNumber, message string) (bool, error)
}

// logSender, SMS'i sadece loglayan SMSSender implementasyonu.
type logSender struct {
	fromNumber string
}

// NewLogSender, log-only sender oluşturur.
func NewLogSender(fromNumber string) SMSSender {
	return &logSender{fromNumber: fromNumber}
}

func (s *logSender) Send(ctx context.Context, toNumber, message string) (bool, error) {
	if toNumber == "" {
		return false, nil
	}

	log.Printf("[sms] (log-only) from=%s to=%s body=%q", s.fromNumber, toNumber, Truncate(message))
	return true, nil
}

// Truncate, mesajı SMS segment limitine kırpar.
// Rune bazlı kırpma — multibyte karakterler ortadan bölünmez.
func Truncate(message string) string {
	if utf8.RuneCountInString(message) <= MaxMessageLength {
		return message
	}

	runes := []rune(message)
	return string(runes[:MaxMessageLength])
}
