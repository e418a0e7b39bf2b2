package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/akinalp/smartnotify/models"
)

// summaryRowsFor, kullanıcının KindSummary bildirimlerini döner.
func summaryRowsFor(t *testing.T, fx *dispatchFixture, userID string) []models.Notification {
	t.Helper()

	rows, err := fx.notifRepo.GetByUser(context.Background(), userID, 50)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}

	var out []models.Notification
	for _, n := range rows {
		if n.Kind == models.KindSummary {
			out = append(out, n)
		}
	}
	return out
}

// Tarama turu: pencere içinde okunmamış bildirimi olan her alıcı bir özet
// SATIRI alır; email kanalı açıksa özet email'i de gider. Tercih satırı
// olmayan kullanıcı atlanır — dispatch path'leriyle aynı politika.
func TestSummaryCollectorCollect(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	alice := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, alice.ID, true, true, false)
	seedNotification(t, fx.db, alice.ID, "unread one")
	seedNotification(t, fx.db, alice.ID, "unread two")

	// Tercih satırı yok — özet üretilmez
	bob := seedUser(t, fx.db, "bob", "bob@example.com", "")
	seedNotification(t, fx.db, bob.ID, "unread")

	// Email kanalı kapalı — satır + push var, email task'ı yok
	carol := seedUser(t, fx.db, "carol", "carol@example.com", "")
	seedPref(t, fx.db, carol.ID, true, false, false)
	seedNotification(t, fx.db, carol.ID, "unread")

	sc := NewSummaryCollector(fx.notifRepo, fx.svc, 7*24*time.Hour).(*summaryCollector)
	sc.collect()

	aliceRows := summaryRowsFor(t, fx, alice.ID)
	if len(aliceRows) != 1 {
		t.Fatalf("expected 1 summary row for alice, got %d", len(aliceRows))
	}
	if aliceRows[0].Message != "You have 2 unread notifications from this week" {
		t.Errorf("alice summary message = %q", aliceRows[0].Message)
	}
	if !aliceRows[0].InAppStatus || !aliceRows[0].EmailStatus {
		t.Errorf("alice summary channels = in_app:%v email:%v, want both true",
			aliceRows[0].InAppStatus, aliceRows[0].EmailStatus)
	}
	if events := fx.hub.eventsFor(alice.ID); len(events) != 1 {
		t.Errorf("expected 1 ws event for alice, got %d", len(events))
	}

	if rows := summaryRowsFor(t, fx, bob.ID); len(rows) != 0 {
		t.Errorf("bob has no preference row, summary rows = %d, want 0", len(rows))
	}

	carolRows := summaryRowsFor(t, fx, carol.ID)
	if len(carolRows) != 1 {
		t.Fatalf("expected 1 summary row for carol, got %d", len(carolRows))
	}
	if carolRows[0].EmailStatus || carolRows[0].EmailTaskID != nil {
		t.Errorf("carol's summary should not schedule email, got status=%v", carolRows[0].EmailStatus)
	}

	// Teslimat: yalnızca alice'e özet email'i gider
	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fx.email.sent) != 1 || fx.email.sent[0].to != "alice@example.com" {
		t.Fatalf("expected 1 summary email to alice, got %+v", fx.email.sent)
	}
	if !strings.Contains(fx.email.sent[0].subject, "weekly summary") {
		t.Errorf("summary subject = %q", fx.email.sent[0].subject)
	}
}

// Pencere dışı okunmamışlar sayılmaz: yalnızca son interval'in bildirimleri
// özete girer.
func TestSummaryCollectorWindow(t *testing.T) {
	fx := newDispatchFixture(t)

	dave := seedUser(t, fx.db, "dave", "dave@example.com", "")
	seedPref(t, fx.db, dave.ID, true, true, false)
	old := seedNotification(t, fx.db, dave.ID, "stale unread")

	_, err := fx.db.Conn.Exec(
		"UPDATE notifications SET created_at = datetime('now', '-30 days') WHERE id = ?", old.ID)
	if err != nil {
		t.Fatalf("failed to backdate notification: %v", err)
	}

	sc := NewSummaryCollector(fx.notifRepo, fx.svc, 7*24*time.Hour).(*summaryCollector)
	sc.collect()

	if rows := summaryRowsFor(t, fx, dave.ID); len(rows) != 0 {
		t.Errorf("30-day-old unread should fall outside the window, summary rows = %d", len(rows))
	}
}

// Okunmamış bir özet satırı bir sonraki taramada sayılmaz — özetler
// kendi kendini besleyen bir döngü kurmaz.
func TestSummaryCollectorSkipsPriorSummaries(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	alice := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, alice.ID, true, true, false)
	original := seedNotification(t, fx.db, alice.ID, "unread comment")

	sc := NewSummaryCollector(fx.notifRepo, fx.svc, 7*24*time.Hour).(*summaryCollector)
	sc.collect()

	if rows := summaryRowsFor(t, fx, alice.ID); len(rows) != 1 {
		t.Fatalf("expected 1 summary row after first scan, got %d", len(rows))
	}

	// Asıl bildirim okunur; geriye okunmamış olarak yalnızca özet satırı kalır
	if err := fx.notifRepo.MarkRead(ctx, alice.ID, []string{original.ID}); err != nil {
		t.Fatalf("failed to mark original read: %v", err)
	}

	sc.collect()

	if rows := summaryRowsFor(t, fx, alice.ID); len(rows) != 1 {
		t.Errorf("unread summary must not trigger a new summary, rows = %d", len(rows))
	}
}

func TestSummaryCollectorNoDigests(t *testing.T) {
	fx := newDispatchFixture(t)

	sc := NewSummaryCollector(fx.notifRepo, fx.svc, time.Hour).(*summaryCollector)
	sc.collect()

	if got := fx.queue.pendingCount(); got != 0 {
		t.Errorf("expected no tasks on empty database, got %d", got)
	}
	if len(fx.hub.calls) != 0 {
		t.Errorf("expected no ws events on empty database, got %d", len(fx.hub.calls))
	}
}

// Graceful shutdown path'inde Stop birden fazla kez çağrılabilir —
// ikinci çağrı panic'lememeli.
func TestSummaryCollectorStopIdempotent(t *testing.T) {
	fx := newDispatchFixture(t)

	sc := NewSummaryCollector(fx.notifRepo, fx.svc, time.Hour)
	sc.Start()
	sc.Stop()
	sc.Stop()
}
