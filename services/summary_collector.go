// Package services — SummaryCollector, periyodik okunmamış özet servisi.
//
// Her interval'de (production: 168 saat = 1 hafta) son pencere içinde
// üretilmiş okunmamış bildirimi olan kullanıcıları tek sorguyla bulur ve
// kullanıcı başına bir özet bildirimi dispatch eder: in-app satır + WS push,
// email kanalı açıksa özet email'i de gider. Eski taramalardan kalan özet
// satırları sayıma girmez — özet kendini beslemez.
//
// Goroutine pattern: time.NewTicker + select + stopCh.
// Graceful shutdown: main.go'da collector.Stop() çağrılır.
package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/akinalp/smartnotify/repository"
)

// SummaryCollector, periyodik özet tarama interface'i.
type SummaryCollector interface {
	// Start, collector goroutine'ini başlatır.
	// main.go'da queue.Start sonrasında çağrılır.
	Start()

	// Stop, collector goroutine'ini durdurur. Tekrarlı çağrı güvenlidir.
	// main.go'da graceful shutdown sırasında çağrılır.
	Stop()
}

type summaryCollector struct {
	notifRepo  repository.NotificationRepository
	dispatcher DispatchService
	interval   time.Duration

	stopCh  chan struct{}
	stopped atomic.Bool
}

// NewSummaryCollector, constructor.
//
// interval: tarama aralığı (production: 168*time.Hour). Aynı değer sayım
// penceresidir — her tarama yalnızca son interval'in bildirimlerini sayar.
func NewSummaryCollector(
	notifRepo repository.NotificationRepository,
	dispatcher DispatchService,
	interval time.Duration,
) SummaryCollector {
	return &summaryCollector{
		notifRepo:  notifRepo,
		dispatcher: dispatcher,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start, collector goroutine'ini başlatır.
// İlk tarama bir tam interval SONRA çalışır — start'ta hemen çalışsaydı
// her restart okunmamış bildirimi olan herkese yeni bir özet atardı.
func (c *summaryCollector) Start() {
	log.Printf("[summary-collector] starting (interval=%s)", c.interval)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				log.Println("[summary-collector] stopped")
				return
			}
		}
	}()
}

// Stop, collector goroutine'ini durdurur.
// atomic.Bool swap ikinci çağrının kapalı kanalı tekrar kapatmasını önler.
func (c *summaryCollector) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	close(c.stopCh)
}

// collect, tek bir tarama turu: pencereli digest sorgusu + kullanıcı başına
// özet dispatch'i.
func (c *summaryCollector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	since := time.Now().Add(-c.interval)
	digests, err := c.notifRepo.GetUnreadDigests(ctx, since)
	if err != nil {
		log.Printf("[summary-collector] failed to load digests: %v", err)
		return
	}

	if len(digests) == 0 {
		return
	}

	dispatched := 0
	for _, d := range digests {
		if err := c.dispatcher.DispatchSummary(ctx, &d); err != nil {
			// Tek kullanıcının hatası turu durdurmaz
			log.Printf("[summary-collector] failed to dispatch summary for user %s: %v", d.UserID, err)
			continue
		}
		dispatched++
	}

	log.Printf("[summary-collector] dispatched %d summary notification(s)", dispatched)
}
