package taskqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// testOptions, testlerde bekleme sürelerini kısa tutan ayarlar.
func testOptions() Options {
	return Options{
		Workers:        2,
		MaxRetries:     3,
		Backoff:        5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

// waitSignal, kanaldan sinyal bekler — gelmezse testi düşürür.
func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestEnqueueRequiresRegisteredHandler(t *testing.T) {
	q := New(testOptions())

	_, err := q.Enqueue(context.Background(), "unknown.kind", nil)
	if err == nil {
		t.Fatalf("enqueue without a registered handler must fail")
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	q := New(testOptions())
	q.Register("noop", func(ctx context.Context, payload []byte) error { return nil })
	q.Start()
	q.Stop()

	if _, err := q.Enqueue(context.Background(), "noop", nil); err == nil {
		t.Fatalf("enqueue after stop must fail")
	}

	// Stop idempotent — ikinci çağrı panic'lememeli
	q.Stop()
}

func TestTaskExecution(t *testing.T) {
	q := New(testOptions())

	got := make(chan []byte, 1)
	q.Register("echo", func(ctx context.Context, payload []byte) error {
		got <- payload
		return nil
	})
	q.Start()
	defer q.Stop()

	type payload struct {
		Value string `json:"value"`
	}

	h1, err := q.Enqueue(context.Background(), "echo", payload{Value: "hello"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	h2, err := q.Enqueue(context.Background(), "echo", payload{Value: "world"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if h1.ID == "" || h1.ID == h2.ID {
		t.Errorf("handles must carry distinct non-empty ids: %q vs %q", h1.ID, h2.ID)
	}
	if h1.Kind != "echo" {
		t.Errorf("handle kind = %q, want %q", h1.Kind, "echo")
	}

	for i := 0; i < 2; i++ {
		select {
		case p := <-got:
			if string(p) != `{"value":"hello"}` && string(p) != `{"value":"world"}` {
				t.Errorf("unexpected payload %s", p)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for task execution")
		}
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	q := New(testOptions())

	var attempts atomic.Int32
	done := make(chan struct{})
	q.Register("flaky", func(ctx context.Context, payload []byte) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})
	q.Start()
	defer q.Stop()

	if _, err := q.Enqueue(context.Background(), "flaky", nil); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	waitSignal(t, done, "task to succeed after retries")
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 1
	q := New(opts)

	var attempts atomic.Int32
	attempted := make(chan struct{}, 8)
	q.Register("doomed", func(ctx context.Context, payload []byte) error {
		attempts.Add(1)
		attempted <- struct{}{}
		return errors.New("permanent failure")
	})
	q.Start()
	defer q.Stop()

	if _, err := q.Enqueue(context.Background(), "doomed", nil); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// İlk deneme + 1 retry
	waitSignal(t, attempted, "first attempt")
	waitSignal(t, attempted, "retry attempt")

	// Backoff penceresinin fazlasıyla ötesinde üçüncü deneme gelmemeli
	select {
	case <-attempted:
		t.Fatalf("task ran again after retries were exhausted")
	case <-time.After(100 * time.Millisecond):
	}

	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestAttemptTimeout(t *testing.T) {
	opts := testOptions()
	opts.MaxRetries = 0
	opts.AttemptTimeout = 20 * time.Millisecond
	q := New(opts)

	done := make(chan struct{})
	q.Register("slow", func(ctx context.Context, payload []byte) error {
		defer close(done)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	})
	q.Start()
	defer q.Stop()

	if _, err := q.Enqueue(context.Background(), "slow", nil); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Handler context'i attempt timeout'ta iptal edilmeli
	waitSignal(t, done, "slow task to be cancelled")
}
