package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Thread, bir tartışma başlığını temsil eder.
// Thread'i oluşturan kullanıcı otomatik olarak subscribe edilir.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadSubscription, bir kullanıcının thread aboneliğini temsil eder.
// (thread_id, user_id) çifti unique'tir — tekrar subscribe idempotent'tir.
type ThreadSubscription struct {
	ThreadID  string    `json:"thread_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadDetail, GET /api/threads/{id} yanıtı — thread + yorumları.
type ThreadDetail struct {
	Thread   Thread    `json:"thread"`
	Comments []Comment `json:"comments"`
}

// CreateThreadRequest, thread oluşturma isteği.
type CreateThreadRequest struct {
	Title string `json:"title"`
}

// Validate, CreateThreadRequest'i kontrol eder.
func (r *CreateThreadRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	titleLen := utf8.RuneCountInString(r.Title)
	if titleLen == 0 {
		return fmt.Errorf("title is required")
	}
	if titleLen > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	return nil
}
