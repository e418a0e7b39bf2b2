package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Comment, bir thread altındaki yorumu temsil eder.
// Yorum yazmak aboneleri bilgilendiren dispatch akışını tetikler —
// tetikleme service katmanında AÇIK bir çağrıdır, gizli bir hook değil.
type Comment struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest, yorum oluşturma isteği.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// Validate, CreateCommentRequest'i kontrol eder.
func (r *CreateCommentRequest) Validate() error {
	r.Body = strings.TrimSpace(r.Body)
	bodyLen := utf8.RuneCountInString(r.Body)
	if bodyLen == 0 {
		return fmt.Errorf("body is required")
	}
	if bodyLen > 4000 {
		return fmt.Errorf("body must be at most 4000 characters")
	}
	return nil
}
