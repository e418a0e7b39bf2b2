package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/ws"
)

// TestDispatchCommentNotifications, fan-out'un ana senaryosu:
//   - yorum yazarı bildirim ALMAZ
//   - tercih satırı olmayan abone tamamen atlanır
//   - tüm kanalları kapalı abone yine de satır alır ama teslimat almaz
//   - kanalları açık abone: in_app push + her kanal için KENDİ task id'si
func TestDispatchCommentNotifications(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	author := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, author.ID, true, true, false)

	bob := seedUser(t, fx.db, "bob", "bob@example.com", "+905551112233")
	seedPref(t, fx.db, bob.ID, true, true, true)

	carol := seedUser(t, fx.db, "carol", "carol@example.com", "") // tercih satırı YOK

	dave := seedUser(t, fx.db, "dave", "dave@example.com", "")
	seedPref(t, fx.db, dave.ID, false, false, false)

	thread := seedThread(t, fx.db, author.ID, "Go generics")
	for _, id := range []string{author.ID, bob.ID, carol.ID, dave.ID} {
		seedSubscription(t, fx.db, thread.ID, id)
	}

	comment := seedComment(t, fx.db, thread.ID, author.ID, "type parameters are neat")

	if err := fx.svc.DispatchCommentNotifications(ctx, comment); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	// Yazar ve tercihsiz abone: satır yok
	for _, u := range []*models.User{author, carol} {
		rows, err := fx.notifRepo.GetByUser(ctx, u.ID, 10)
		if err != nil {
			t.Fatalf("failed to load notifications for %s: %v", u.Username, err)
		}
		if len(rows) != 0 {
			t.Errorf("%s should have no notifications, got %d", u.Username, len(rows))
		}
	}

	// Tüm kanalları kapalı abone: satır var, teslimat yok
	daveRows, err := fx.notifRepo.GetByUser(ctx, dave.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications for dave: %v", err)
	}
	if len(daveRows) != 1 {
		t.Fatalf("dave should have exactly 1 notification, got %d", len(daveRows))
	}
	if daveRows[0].EmailTaskID != nil || daveRows[0].SMSTaskID != nil {
		t.Errorf("dave has all channels disabled, no task ids expected: email=%v sms=%v",
			daveRows[0].EmailTaskID, daveRows[0].SMSTaskID)
	}
	if got := fx.hub.eventsFor(dave.ID); len(got) != 0 {
		t.Errorf("dave has in_app disabled, expected no ws events, got %d", len(got))
	}

	// Kanalları açık abone
	bobRows, err := fx.notifRepo.GetByUser(ctx, bob.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications for bob: %v", err)
	}
	if len(bobRows) != 1 {
		t.Fatalf("bob should have exactly 1 notification, got %d", len(bobRows))
	}
	n := bobRows[0]

	wantMessage := fmt.Sprintf("%s commented on %q", author.Username, thread.Title)
	if n.Message != wantMessage {
		t.Errorf("message = %q, want %q", n.Message, wantMessage)
	}
	if n.Kind != models.KindComment {
		t.Errorf("kind = %q, want %q", n.Kind, models.KindComment)
	}
	if !n.InAppStatus || !n.EmailStatus || !n.SMSStatus {
		t.Errorf("channel snapshot should mirror preferences: in_app=%v email=%v sms=%v",
			n.InAppStatus, n.EmailStatus, n.SMSStatus)
	}

	events := fx.hub.eventsFor(bob.ID)
	if len(events) != 1 {
		t.Fatalf("bob should get exactly 1 ws event, got %d", len(events))
	}
	if events[0].Op != ws.OpNotificationCreate {
		t.Errorf("ws event op = %q, want %q", events[0].Op, ws.OpNotificationCreate)
	}

	// Her kanal KENDİ task'ına bağlanır: satırdaki id, o kanalın enqueue
	// edilmiş task'ının handle id'si olmalı — başka task'ın id'si değil.
	assertTaskCorrelation(t, fx, TaskSendEmail, n.ID, n.EmailTaskID)
	assertTaskCorrelation(t, fx, TaskSendSMS, n.ID, n.SMSTaskID)

	// Teslimat: drain sonrası email bob'un adresine, sms bob'un numarasına
	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fx.email.sent) != 1 || fx.email.sent[0].to != "bob@example.com" {
		t.Errorf("expected 1 email to bob@example.com, got %+v", fx.email.sent)
	}
	if len(fx.sms.sent) != 1 || fx.sms.sent[0].to != "+905551112233" {
		t.Errorf("expected 1 sms to bob's number, got %+v", fx.sms.sent)
	}
}

// assertTaskCorrelation, verilen kind'daki enqueued task'lar arasında bu
// notification'a ait olanı bulur ve satırdaki task id ile eşleşmesini doğrular.
func assertTaskCorrelation(t *testing.T, fx *dispatchFixture, kind, notificationID string, gotTaskID *string) {
	t.Helper()

	if gotTaskID == nil {
		t.Errorf("%s task id not recorded for notification %s", kind, notificationID)
		return
	}

	for _, task := range fx.queue.byKind(kind) {
		var p struct {
			NotificationID string `json:"notification_id"`
		}
		if err := json.Unmarshal(task.payload, &p); err != nil {
			t.Fatalf("bad task payload: %v", err)
		}
		if p.NotificationID == notificationID {
			if task.handleID != *gotTaskID {
				t.Errorf("%s task id = %q, want own handle %q", kind, *gotTaskID, task.handleID)
			}
			return
		}
	}
	t.Errorf("no %s task enqueued for notification %s", kind, notificationID)
}

func TestDispatchCommentNoRecipients(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	author := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, author.ID, true, true, false)
	thread := seedThread(t, fx.db, author.ID, "talking to myself")
	seedSubscription(t, fx.db, thread.ID, author.ID)
	comment := seedComment(t, fx.db, thread.ID, author.ID, "anyone here?")

	if err := fx.svc.DispatchCommentNotifications(ctx, comment); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if got := fx.queue.pendingCount(); got != 0 {
		t.Errorf("expected no tasks, got %d", got)
	}
	if len(fx.hub.calls) != 0 {
		t.Errorf("expected no ws events, got %d", len(fx.hub.calls))
	}
}

func TestDispatchDeviceAlert(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, true, true, false)

	device := &models.KnownDevice{
		UserID:      user.ID,
		Fingerprint: models.DeviceFingerprint("203.0.113.7", "curl/8.5.0"),
		IP:          "203.0.113.7",
		UserAgent:   "curl/8.5.0",
	}

	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("dispatch device alert failed: %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rows))
	}
	n := rows[0]

	if n.Kind != models.KindDeviceAlert {
		t.Errorf("kind = %q, want %q", n.Kind, models.KindDeviceAlert)
	}
	// Kayıtlı mesaj gönderim SONRASI ip/cihaz detaylarıyla zenginleştirilir
	if !strings.Contains(n.Message, "ip: 203.0.113.7") || !strings.Contains(n.Message, "curl/8.5.0") {
		t.Errorf("stored message should carry device details, got %q", n.Message)
	}

	if len(fx.hub.eventsFor(user.ID)) != 1 {
		t.Errorf("expected 1 ws event for device alert")
	}
	if n.EmailTaskID == nil {
		t.Errorf("email task id should be recorded")
	}
	if n.SMSTaskID != nil {
		t.Errorf("sms channel disabled, no task id expected, got %v", *n.SMSTaskID)
	}
}

// Tercih satırı olmayan kullanıcı device alert de almaz — comment
// fan-out ile aynı politika.
func TestDispatchDeviceAlertNoPreferenceRow(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "ghost", "ghost@example.com", "")
	device := &models.KnownDevice{
		UserID:    user.ID,
		IP:        "203.0.113.7",
		UserAgent: "curl/8.5.0",
	}

	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("expected nil for user without preference row, got %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no notifications, got %d", len(rows))
	}
}

// Enqueue başarısız olursa satırda "pending" sentinel'i kalır — kanal
// istendi ama task'a bağlanamadı izi.
func TestScheduleChannelEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, false, true, false)

	fx.queue.enqueueErr = errors.New("queue is stopped")

	device := &models.KnownDevice{UserID: user.ID, IP: "1.2.3.4", UserAgent: "curl"}
	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("dispatch should not fail on enqueue error: %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rows))
	}
	if rows[0].EmailTaskID == nil || *rows[0].EmailTaskID != models.TaskIDPending {
		t.Errorf("email task id = %v, want %q sentinel", rows[0].EmailTaskID, models.TaskIDPending)
	}
}

// Sender kalıcı ret dönerse (false, nil) kanal kapatılır: status=0, task id NULL.
func TestHandleSendEmailPermanentReject(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, false, true, false)

	device := &models.KnownDevice{UserID: user.ID, IP: "1.2.3.4", UserAgent: "curl"}
	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	fx.email.delivered = false // kalıcı ret
	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain should not error on permanent reject: %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	n := rows[0]
	if n.EmailStatus {
		t.Errorf("email status should be cleared after permanent reject")
	}
	if n.EmailTaskID != nil {
		t.Errorf("email task id should be NULL after permanent reject, got %q", *n.EmailTaskID)
	}
}

// Geçici hata handler'dan yukarı döner (queue retry eder) — satır değişmez.
func TestHandleSendEmailTransientError(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, false, true, false)

	device := &models.KnownDevice{UserID: user.ID, IP: "1.2.3.4", UserAgent: "curl"}
	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	fx.email.err = errors.New("provider timeout")
	if err := fx.queue.drain(ctx); err == nil {
		t.Fatalf("transient sender error should propagate for retry")
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	n := rows[0]
	if !n.EmailStatus {
		t.Errorf("email status must stay enabled on transient error")
	}
	if n.EmailTaskID == nil {
		t.Errorf("email task id must stay recorded on transient error")
	}
}

// Kanal task kuyruktayken kapatılmışsa handler sessizce biter.
func TestHandleSendEmailChannelDisabledMidFlight(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, false, true, false)

	device := &models.KnownDevice{UserID: user.ID, IP: "1.2.3.4", UserAgent: "curl"}
	if err := fx.svc.DispatchDeviceAlert(ctx, user, device); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if _, err := fx.db.Conn.Exec("UPDATE notifications SET email_status = 0"); err != nil {
		t.Fatalf("failed to disable channel: %v", err)
	}

	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fx.email.sent) != 0 {
		t.Errorf("no email should be sent for a disabled channel, got %d", len(fx.email.sent))
	}
}

// SMS mesajı sender'a verilmeden önce 160 rune'a kırpılır.
func TestHandleSendSMSTruncates(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	author := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, author.ID, false, false, false)

	bob := seedUser(t, fx.db, "bob", "", "+905551112233")
	seedPref(t, fx.db, bob.ID, false, false, true)

	longTitle := strings.Repeat("çok uzun başlık ", 20)
	thread := seedThread(t, fx.db, author.ID, longTitle)
	seedSubscription(t, fx.db, thread.ID, bob.ID)
	comment := seedComment(t, fx.db, thread.ID, author.ID, "ping")

	if err := fx.svc.DispatchCommentNotifications(ctx, comment); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	if len(fx.sms.sent) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(fx.sms.sent))
	}
	if got := utf8.RuneCountInString(fx.sms.sent[0].body); got != 160 {
		t.Errorf("sms body length = %d runes, want 160", got)
	}
}

// Özet task'ı notification satırı ÜRETMEZ — sadece email çıkar.
// Özet dispatch'i: alıcıya bir özet satırı yazılır (in-app push dahil),
// email kanalı açıksa aynı satır için özet email task'ı kuyruğa girer.
// Email, in-app kaydın ÜZERİNE bir ektir — satırın yerine geçmez.
func TestDispatchSummary(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "alice", "alice@example.com", "")
	seedPref(t, fx.db, user.ID, true, true, false)

	digest := &models.UnreadDigest{
		UserID:       user.ID,
		InAppEnabled: true,
		EmailEnabled: true,
		UnreadCount:  4,
	}
	if err := fx.svc.DispatchSummary(ctx, digest); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 summary notification row, got %d", len(rows))
	}

	n := rows[0]
	if n.Kind != models.KindSummary {
		t.Errorf("kind = %q, want %q", n.Kind, models.KindSummary)
	}
	if n.Message != "You have 4 unread notifications from this week" {
		t.Errorf("message = %q, want weekly unread count", n.Message)
	}
	if !n.InAppStatus || !n.EmailStatus || n.SMSStatus {
		t.Errorf("channel snapshot = in_app:%v email:%v sms:%v, want true/true/false",
			n.InAppStatus, n.EmailStatus, n.SMSStatus)
	}
	assertTaskCorrelation(t, fx, TaskSendSummary, n.ID, n.EmailTaskID)

	if events := fx.hub.eventsFor(user.ID); len(events) != 1 {
		t.Errorf("expected 1 ws event for summary, got %d", len(events))
	}

	if err := fx.queue.drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(fx.email.sent) != 1 {
		t.Fatalf("expected 1 summary email, got %d", len(fx.email.sent))
	}
	if fx.email.sent[0].subject != "Your weekly summary — smartnotify" {
		t.Errorf("summary subject = %q", fx.email.sent[0].subject)
	}
	if !strings.Contains(fx.email.sent[0].body, "4 unread notifications") {
		t.Errorf("summary body should carry unread count, got %q", fx.email.sent[0].body)
	}
}

// Email kanalı kapalı alıcı: özet satırı yine yazılır (olay kaydı teslimattan
// bağımsız), ama email task'ı kuyruğa girmez.
func TestDispatchSummaryEmailDisabled(t *testing.T) {
	ctx := context.Background()
	fx := newDispatchFixture(t)

	user := seedUser(t, fx.db, "carol", "carol@example.com", "")
	seedPref(t, fx.db, user.ID, true, false, false)

	digest := &models.UnreadDigest{
		UserID:       user.ID,
		InAppEnabled: true,
		EmailEnabled: false,
		UnreadCount:  1,
	}
	if err := fx.svc.DispatchSummary(ctx, digest); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	rows, err := fx.notifRepo.GetByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 summary notification row, got %d", len(rows))
	}
	if rows[0].EmailStatus {
		t.Errorf("email status should snapshot the disabled preference")
	}
	if rows[0].EmailTaskID != nil {
		t.Errorf("no email task should be recorded, got %q", *rows[0].EmailTaskID)
	}
	if got := fx.queue.pendingCount(); got != 0 {
		t.Errorf("expected no queued tasks, got %d", got)
	}
}
