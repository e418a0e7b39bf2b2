// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
//
// Go'da `json:"username"` gibi tag'ler, struct field'larının JSON'a
// nasıl serialize/deserialize edileceğini belirler.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// User, bir kullanıcıyı temsil eder.
//
// FirstLogin: Kullanıcı henüz hiç giriş yapmadıysa true.
// İlk girişte cihaz kaydedilir ama güvenlik uyarısı GÖNDERİLMEZ —
// ilk giriş, bilinen cihaz baseline'ını oluşturur. Flag ilk girişte
// bir defaya mahsus false'a çekilir.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  *string   `json:"display_name"` // *string = nullable — Go'da nil olabilir
	Email        *string   `json:"email"`
	PhoneNumber  *string   `json:"phone_number"`
	PasswordHash string    `json:"-"` // json:"-" → API response'a DAHİL ETME (güvenlik!)
	FirstLogin   bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// emailRegex, basit email format kontrolü. RFC-complete değildir —
// gerçek doğrulama zaten gönderilen email'in ulaşmasıyla olur.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailRegex, email format regex'ini döner.
func EmailRegex() *regexp.Regexp {
	return emailRegex
}

// CreateUserRequest, kayıt olurken frontend'den gelen veri.
// PasswordHash yerine Password alırız — hash'leme service katmanında yapılır.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	DisplayName string `json:"display_name"`
}

// Validate, CreateUserRequest'in geçerli olup olmadığını kontrol eder.
// Validation kuralları:
//   - Username: 3-32 karakter, alfanumerik + alt çizgi
//   - Password: minimum 8 karakter
//   - Email / PhoneNumber / DisplayName: opsiyonel
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}

	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email != "" && !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("invalid email format")
	}

	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if utf8.RuneCountInString(r.PhoneNumber) > 20 {
		return fmt.Errorf("phone number must be at most 20 characters")
	}

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if utf8.RuneCountInString(r.DisplayName) > 32 {
		return fmt.Errorf("display name must be at most 32 characters")
	}

	return nil
}

// LoginRequest, giriş yaparken frontend'den gelen veri.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// isValidUsernameChar, username'de izin verilen karakterleri kontrol eder.
func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
