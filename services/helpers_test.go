// Test yardımcıları — service testlerinin ortak altyapısı.
//
// Testler gerçek SQLite üzerinde çalışır (geçici dosya, migration'lar
// embed'den uygulanır). Dış dünya (queue, hub, email, sms) fake
// implementasyonlarla değiştirilir — hepsi ilgili interface'i implement
// eder, çağrıları kaydeder ve testin senkron kontrolüne izin verir.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg/taskqueue"
	"github.com/akinalp/smartnotify/repository"
	"github.com/akinalp/smartnotify/ws"
)

// newTestDB, geçici dosyada migration'ları uygulanmış bir veritabanı açar.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("failed to access embedded migrations: %v", err)
	}

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), migrationsFS)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// ─── Seed helpers ───

func seedUser(t *testing.T, db *database.DB, username, email, phone string) *models.User {
	t.Helper()

	user := &models.User{Username: username, PasswordHash: "x"}
	if email != "" {
		user.Email = &email
	}
	if phone != "" {
		user.PhoneNumber = &phone
	}

	if err := repository.NewSQLiteUserRepo(db.Conn).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func seedPref(t *testing.T, db *database.DB, userID string, inApp, email, sms bool) {
	t.Helper()

	pref := &models.NotificationPreference{
		UserID:       userID,
		InAppEnabled: inApp,
		EmailEnabled: email,
		SMSEnabled:   sms,
	}
	if err := repository.NewSQLitePreferenceRepo(db.Conn).Create(context.Background(), pref); err != nil {
		t.Fatalf("failed to seed preference for %s: %v", userID, err)
	}
}

func seedThread(t *testing.T, db *database.DB, creatorID, title string) *models.Thread {
	t.Helper()

	thread := &models.Thread{Title: title, CreatorID: creatorID}
	if err := repository.NewSQLiteThreadRepo(db.Conn).Create(context.Background(), thread); err != nil {
		t.Fatalf("failed to seed thread: %v", err)
	}
	return thread
}

func seedSubscription(t *testing.T, db *database.DB, threadID, userID string) {
	t.Helper()

	if err := repository.NewSQLiteSubscriptionRepo(db.Conn).Subscribe(context.Background(), threadID, userID); err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}

func seedComment(t *testing.T, db *database.DB, threadID, authorID, body string) *models.Comment {
	t.Helper()

	comment := &models.Comment{ThreadID: threadID, AuthorID: authorID, Body: body}
	if err := repository.NewSQLiteCommentRepo(db.Conn).Create(context.Background(), comment); err != nil {
		t.Fatalf("failed to seed comment: %v", err)
	}
	return comment
}

// ─── Fake queue ───

// enqueuedTask, fakeQueue'nun kaydettiği tek bir Enqueue çağrısı.
type enqueuedTask struct {
	handleID string
	kind     string
	payload  []byte
}

// fakeQueue, taskqueue.Queue'nun senkron test implementasyonu.
// Task'lar çalıştırılmaz, biriktirilir — test drain ile kayıtlı
// handler'ları kendi kontrolünde çalıştırır. Handle id'leri
// deterministik sırayla üretilir (task-1, task-2, ...).
type fakeQueue struct {
	mu         sync.Mutex
	handlers   map[string]taskqueue.Handler
	tasks      []enqueuedTask
	nextID     int
	enqueueErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[string]taskqueue.Handler)}
}

func (q *fakeQueue) Register(kind string, handler taskqueue.Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *fakeQueue) Enqueue(ctx context.Context, kind string, payload any) (taskqueue.TaskHandle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.enqueueErr != nil {
		return taskqueue.TaskHandle{}, q.enqueueErr
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return taskqueue.TaskHandle{}, err
	}

	q.nextID++
	id := fmt.Sprintf("task-%d", q.nextID)
	q.tasks = append(q.tasks, enqueuedTask{handleID: id, kind: kind, payload: data})

	return taskqueue.TaskHandle{ID: id, Kind: kind}, nil
}

func (q *fakeQueue) Start() {}
func (q *fakeQueue) Stop()  {}

// drain, biriken tüm task'ları kayıtlı handler'larla sırayla çalıştırır.
// İlk handler hatasında durur ve hatayı döner.
func (q *fakeQueue) drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return nil
		}
		t := q.tasks[0]
		q.tasks = q.tasks[1:]
		handler := q.handlers[t.kind]
		q.mu.Unlock()

		if handler == nil {
			continue
		}
		if err := handler(ctx, t.payload); err != nil {
			return err
		}
	}
}

// byKind, bekleyen task'ları kind'a göre filtreler.
func (q *fakeQueue) byKind(kind string) []enqueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []enqueuedTask
	for _, t := range q.tasks {
		if t.kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func (q *fakeQueue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// ─── Fake hub ───

type broadcastCall struct {
	userID string
	event  ws.Event
}

// fakeHub, ws.EventPublisher'ın kayıt tutan test implementasyonu.
type fakeHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (h *fakeHub) BroadcastToUser(userID string, event ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, broadcastCall{userID: userID, event: event})
}

func (h *fakeHub) GetOnlineUserIDs() []string { return nil }

func (h *fakeHub) eventsFor(userID string) []ws.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []ws.Event
	for _, c := range h.calls {
		if c.userID == userID {
			out = append(out, c.event)
		}
	}
	return out
}

// ─── Fake senders ───

type sentEmail struct {
	to      string
	subject string
	body    string
}

// fakeEmailSender, EmailSender sözleşmesini test tarafında oynatır:
// err != nil → geçici hata; delivered=false → kalıcı ret.
type fakeEmailSender struct {
	mu        sync.Mutex
	delivered bool
	err       error
	sent      []sentEmail
}

func (f *fakeEmailSender) Send(ctx context.Context, toEmail, subject, htmlBody string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	f.sent = append(f.sent, sentEmail{to: toEmail, subject: subject, body: htmlBody})
	return f.delivered, nil
}

type sentSMS struct {
	to   string
	body string
}

type fakeSMSSender struct {
	mu        sync.Mutex
	delivered bool
	err       error
	sent      []sentSMS
}

func (f *fakeSMSSender) Send(ctx context.Context, toNumber, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	f.sent = append(f.sent, sentSMS{to: toNumber, body: message})
	return f.delivered, nil
}

// ─── Fake dispatcher (auth testleri için) ───

type deviceAlertCall struct {
	userID string
	device models.KnownDevice
}

// fakeDispatcher, DispatchService'in kayıt tutan test implementasyonu.
type fakeDispatcher struct {
	mu        sync.Mutex
	alerts    []deviceAlertCall
	summaries []models.UnreadDigest
}

func (f *fakeDispatcher) RegisterTaskHandlers(queue taskqueue.Queue) {}

func (f *fakeDispatcher) DispatchCommentNotifications(ctx context.Context, comment *models.Comment) error {
	return nil
}

func (f *fakeDispatcher) DispatchDeviceAlert(ctx context.Context, user *models.User, device *models.KnownDevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, deviceAlertCall{userID: user.ID, device: *device})
	return nil
}

func (f *fakeDispatcher) DispatchSummary(ctx context.Context, digest *models.UnreadDigest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, *digest)
	return nil
}

func (f *fakeDispatcher) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

// ─── Dispatch fixture ───

// dispatchFixture, dispatch testlerinin tam kurulumu: gerçek DB +
// gerçek repository'ler + fake dış dünya.
type dispatchFixture struct {
	db        *database.DB
	queue     *fakeQueue
	hub       *fakeHub
	email     *fakeEmailSender
	sms       *fakeSMSSender
	notifRepo repository.NotificationRepository
	svc       DispatchService
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	db := newTestDB(t)
	queue := newFakeQueue()
	hub := &fakeHub{}
	emailSender := &fakeEmailSender{delivered: true}
	smsSender := &fakeSMSSender{delivered: true}
	notifRepo := repository.NewSQLiteNotificationRepo(db.Conn)

	svc := NewDispatchService(
		db.Conn,
		notifRepo,
		repository.NewSQLitePreferenceRepo(db.Conn),
		repository.NewSQLiteSubscriptionRepo(db.Conn),
		repository.NewSQLiteThreadRepo(db.Conn),
		repository.NewSQLiteUserRepo(db.Conn),
		queue, emailSender, smsSender, hub,
	)
	svc.RegisterTaskHandlers(queue)

	return &dispatchFixture{
		db:        db,
		queue:     queue,
		hub:       hub,
		email:     emailSender,
		sms:       smsSender,
		notifRepo: notifRepo,
		svc:       svc,
	}
}
