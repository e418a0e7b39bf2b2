package ratelimit

import (
	"testing"
	"time"
)

func TestCommentRateLimiterWindow(t *testing.T) {
	// Uzun window/cooldown — test zamanlamaya bağımlı olmasın
	rl := NewCommentRateLimiter(3, time.Hour, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("comment %d should be allowed within the window", i+1)
		}
	}

	if rl.Allow("alice") {
		t.Errorf("4th comment should be rejected")
	}
	if got := rl.CooldownSeconds("alice"); got <= 0 {
		t.Errorf("cooldown seconds = %d, want > 0 after limit hit", got)
	}

	// Başka kullanıcı etkilenmez
	if !rl.Allow("bob") {
		t.Errorf("another user must have an independent bucket")
	}
	if got := rl.CooldownSeconds("bob"); got != 0 {
		t.Errorf("bob has no cooldown, got %d", got)
	}
}

func TestCommentRateLimiterCooldownExpiry(t *testing.T) {
	rl := NewCommentRateLimiter(1, 10*time.Millisecond, 20*time.Millisecond)

	if !rl.Allow("alice") {
		t.Fatalf("first comment should be allowed")
	}
	if rl.Allow("alice") {
		t.Fatalf("second comment should start the cooldown")
	}

	time.Sleep(50 * time.Millisecond)

	if !rl.Allow("alice") {
		t.Errorf("comments should be allowed again after the cooldown expires")
	}
}
