// Package email, uygulama genelinde email gönderimi için soyutlama katmanı sağlar.
//
// EmailSender interface'i ile email gönderim detayları soyutlanır (Dependency Inversion).
// Şu anki implementasyon Resend API kullanır. İleride farklı bir sağlayıcıya
// geçmek için sadece yeni bir implementasyon yazıp constructor'da değiştirmek yeterli.
//
// Bu paket dışarıya üç şey sunar:
// 1. EmailSender interface — service'ler ve task handler'lar buna bağımlı olur
// 2. NewResendSender constructor — production wire-up
// 3. NewLogSender constructor — RESEND_API_KEY yokken development fallback'i
package email

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v3"
)

// EmailSender, email gönderimi için interface.
//
// Dönüş sözleşmesi (task handler'lar buna göre davranır):
//   - (true, nil): teslim edildi
//   - (false, nil): sağlayıcı kalıcı olarak reddetti — retry ANLAMSIZ,
//     caller kanalı kapatır
//   - (_, err): geçici hata — task queue retry eder
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) (bool, error)
}

// resendSender, Resend API ile email gönderen EmailSender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string // Gönderici adresi (ör: notify@smartnotify.app)
}

// NewResendSender, Resend API client'ı ile yeni bir EmailSender oluşturur.
//
// apiKey: Resend dashboard'dan alınan API key (re_xxxxxxxx formatında).
// fromEmail: Gönderici email adresi — Resend'de doğrulanmış domain altında olmalı.
func NewResendSender(apiKey, fromEmail string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (s *resendSender) Send(ctx context.Context, toEmail, subject, htmlBody string) (bool, error) {
	if toEmail == "" {
		// Adres yok — gönderilecek yer yok, retry de işe yaramaz.
		return false, nil
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("smartnotify <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlBody,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return false, fmt.Errorf("failed to send email: %w", err)
	}

	return true, nil
}

// logSender, email'i sadece loglayan EmailSender implementasyonu.
// RESEND_API_KEY konfigüre edilmediğinde kullanılır — dispatch akışı
// production ile aynı çalışır, sadece gerçek email çıkmaz.
type logSender struct{}

// NewLogSender, log-only sender oluşturur.
func NewLogSender() EmailSender {
	return &logSender{}
}

func (s *logSender) Send(ctx context.Context, toEmail, subject, htmlBody string) (bool, error) {
	log.Printf("[email] (log-only) to=%s subject=%q", toEmail, subject)
	return true, nil
}

// NotificationHTML, bildirim email'inin basit HTML gövdesini üretir.
func NotificationHTML(message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background-color:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <table width="480" cellpadding="0" cellspacing="0" style="margin:0 auto;background-color:#ffffff;border-radius:8px;padding:32px;">
    <tr>
      <td>
        <h1 style="color:#18181b;font-size:20px;margin:0 0 16px 0;">smartnotify</h1>
        <p style="color:#3f3f46;font-size:15px;line-height:1.6;margin:0;">%s</p>
      </td>
    </tr>
  </table>
</body>
</html>`, message)
}
