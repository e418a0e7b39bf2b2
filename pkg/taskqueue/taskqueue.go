// Package taskqueue — in-process async task queue.
//
// Email/SMS gönderimi gibi yavaş işler HTTP request path'inde yapılmaz —
// kuyruğa atılır, worker goroutine'leri arka planda işler. Dağıtık bir
// broker (Redis, RabbitMQ) yerine in-process kuyruk yeterli: tek instance
// deploy, SQLite ile aynı gerekçe.
//
// Tasarım:
//   - Queue.Enqueue(kind, payload) → TaskHandle: her task uuid ile tanınır.
//     Caller bu id'yi kendi kaydına yazarak task'ı correlate edebilir
//     (ör: notifications.email_task_id).
//   - Handler'lar kind başına Register ile kaydedilir — Start'tan önce.
//   - Worker pool: N goroutine buffered channel'dan task çeker.
//   - Retry: handler error dönerse exponential backoff ile tekrar denenir
//     (bekleme = backoff × 2^(deneme-1)), maxRetries aşılınca task düşer.
//   - Her deneme attemptTimeout ile sınırlı bir context alır.
//
// Neden ayrı paket?
// pkg/ratelimit gibi leaf dependency — hiçbir proje içi pakete bağımlı
// değildir, services katmanı interface üzerinden kullanır.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handler, bir task türünü işleyen fonksiyon.
// payload, Enqueue'ya verilen değerin JSON hali — handler kendi tipine
// unmarshal eder. Error dönerse task retry edilir.
type Handler func(ctx context.Context, payload []byte) error

// TaskHandle, kuyruğa alınmış bir task'ın kimliği.
type TaskHandle struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Queue, async task kuyruğu interface'i.
// Service katmanı bu interface'e bağımlıdır — testlerde senkron fake queue
// kullanılabilir (Dependency Inversion).
type Queue interface {
	// Register, kind için handler kaydeder. Start'tan ÖNCE çağrılmalıdır.
	Register(kind string, handler Handler)
	// Enqueue, task'ı kuyruğa alır ve handle döner.
	// Kayıtlı handler'ı olmayan kind veya durdurulmuş kuyruk hata döner.
	Enqueue(ctx context.Context, kind string, payload any) (TaskHandle, error)
	Start()
	Stop()
}

// Options, kuyruk davranış ayarları.
type Options struct {
	Workers        int           // Worker goroutine sayısı (varsayılan: 4)
	MaxRetries     int           // Handler hatasında maksimum tekrar (varsayılan: 3)
	Backoff        time.Duration // Exponential backoff tabanı (varsayılan: 60s)
	AttemptTimeout time.Duration // Deneme başına context timeout (varsayılan: 30s)
}

// task, kuyruktaki tek bir iş birimi.
type task struct {
	id      string
	kind    string
	payload []byte
	attempt int // kaçıncı deneme (0 = ilk çalıştırma)
}

// inProcQueue, Queue interface'inin in-process implementasyonu.
type inProcQueue struct {
	handlers map[string]Handler
	tasks    chan *task
	opts     Options

	stopCh  chan struct{}
	stopped atomic.Bool
	workers sync.WaitGroup
	mu      sync.RWMutex // handlers map koruması (Register vs worker okuma)
}

// New, yeni bir in-process queue oluşturur. Start çağrılana kadar
// worker çalışmaz ama Enqueue buffer'a kabul edilir.
func New(opts Options) Queue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 60 * time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}

	return &inProcQueue{
		handlers: make(map[string]Handler),
		tasks:    make(chan *task, 1024),
		opts:     opts,
		stopCh:   make(chan struct{}),
	}
}

func (q *inProcQueue) Register(kind string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *inProcQueue) Enqueue(ctx context.Context, kind string, payload any) (TaskHandle, error) {
	if q.stopped.Load() {
		return TaskHandle{}, fmt.Errorf("queue is stopped")
	}

	q.mu.RLock()
	_, ok := q.handlers[kind]
	q.mu.RUnlock()
	if !ok {
		return TaskHandle{}, fmt.Errorf("no handler registered for task kind %q", kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return TaskHandle{}, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	t := &task{
		id:      uuid.NewString(),
		kind:    kind,
		payload: data,
	}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return TaskHandle{}, ctx.Err()
	case <-q.stopCh:
		return TaskHandle{}, fmt.Errorf("queue is stopped")
	}

	return TaskHandle{ID: t.id, Kind: t.kind}, nil
}

// Start, worker goroutine'lerini başlatır.
func (q *inProcQueue) Start() {
	log.Printf("[taskqueue] starting (workers=%d, max_retries=%d, backoff=%s)",
		q.opts.Workers, q.opts.MaxRetries, q.opts.Backoff)

	for i := 0; i < q.opts.Workers; i++ {
		q.workers.Add(1)
		go q.workerLoop()
	}
}

// Stop, yeni enqueue'ları reddeder ve worker'ları durdurur.
// O an çalışmakta olan task'lar tamamlanır; buffer'da bekleyenler ve
// retry bekleyenler düşer (graceful shutdown, at-most-once teslim).
func (q *inProcQueue) Stop() {
	if q.stopped.Swap(true) {
		return // zaten durdurulmuş
	}

	close(q.stopCh)
	q.workers.Wait()
	log.Println("[taskqueue] stopped")
}

// workerLoop, tek bir worker goroutine'inin ana döngüsü.
func (q *inProcQueue) workerLoop() {
	defer q.workers.Done()

	for {
		select {
		case t := <-q.tasks:
			q.execute(t)
		case <-q.stopCh:
			return
		}
	}
}

// execute, task'ı bir kez çalıştırır; hata durumunda retry planlar.
func (q *inProcQueue) execute(t *task) {
	q.mu.RLock()
	handler := q.handlers[t.kind]
	q.mu.RUnlock()

	if handler == nil {
		log.Printf("[taskqueue] dropping task %s: no handler for kind %q", t.id, t.kind)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.opts.AttemptTimeout)
	err := handler(ctx, t.payload)
	cancel()

	if err == nil {
		return
	}

	if t.attempt >= q.opts.MaxRetries {
		log.Printf("[taskqueue] task %s (%s) exhausted after %d attempts: %v",
			t.id, t.kind, t.attempt+1, err)
		return
	}

	// Exponential backoff: taban × 2^(deneme). attempt 0→taban, 1→2×taban...
	delay := q.opts.Backoff << t.attempt
	t.attempt++
	log.Printf("[taskqueue] task %s (%s) failed (attempt %d/%d), retrying in %s: %v",
		t.id, t.kind, t.attempt, q.opts.MaxRetries+1, delay, err)

	// Retry timer'ı worker'ı bloklamasın diye ayrı goroutine'de bekler.
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			select {
			case q.tasks <- t:
			case <-q.stopCh:
			}
		case <-q.stopCh:
		}
	}()
}
