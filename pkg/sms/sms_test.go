package sms

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRunes int
	}{
		{"short message unchanged", "hello", 5},
		{"exactly at limit", strings.Repeat("a", 160), 160},
		{"over limit", strings.Repeat("a", 161), 160},
		{"multibyte runes not split", strings.Repeat("ğ", 200), 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input)
			if n := utf8.RuneCountInString(got); n != tt.wantRunes {
				t.Errorf("rune count = %d, want %d", n, tt.wantRunes)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncated message is not valid utf8")
			}
			if !strings.HasPrefix(tt.input, got) {
				t.Errorf("truncation must be a prefix of the input")
			}
		})
	}
}

// Log-only sender üretim sözleşmesini uygular: adressiz alıcı kalıcı rettir.
func TestLogSenderNoNumber(t *testing.T) {
	sender := NewLogSender("+905550000000")

	delivered, err := sender.Send(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if delivered {
		t.Errorf("empty recipient must be a permanent reject, not a delivery")
	}

	delivered, err = sender.Send(context.Background(), "+905551112233", "hello")
	if err != nil || !delivered {
		t.Errorf("send to a number = (%v, %v), want (true, nil)", delivered, err)
	}
}
