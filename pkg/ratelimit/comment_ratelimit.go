// CommentRateLimiter — Yorum spam koruması için kullanıcı bazlı rate limiting.
//
// LoginRateLimiter'dan farklar:
//   - Key: userID (IP değil) — authenticated endpoint, kullanıcı bazlı takip.
//   - Cooldown: Window süresi ve ceza süresi (cooldown) ayrıdır.
//     Limit aşıldığında kullanıcı cooldown süresi kadar bekler.
//     Login limiter'da cooldown = kalan window süresi idi.
//
// Tasarım:
// - 10 saniye window içinde 5 yorum → izin verilir.
// - 6. yorumda cooldown başlar → 30 saniye boyunca tüm yorumlar reddedilir.
// - Cooldown bitince window sıfırlanır, kullanıcı tekrar yorum yazabilir.
//
// Spam burada önemli: her yorum abonelere fan-out tetikler — kontrolsüz
// yorum akışı başkalarının email/sms kanallarını doldurur.
package ratelimit

import (
	"sync"
	"time"
)

// commentBucket, bir kullanıcı için yorum sayacı ve cooldown bilgisi tutar.
//
// İki durumlu:
// 1. Normal mod: count artırılır, windowStart bazlı pencere kontrolü.
// 2. Cooldown mod: cooldownUntil > now → tüm yorumlar reddedilir.
type commentBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// CommentRateLimiter, kullanıcı bazlı yorum spam koruması.
//
// maxComments: Bir window içinde izin verilen maksimum yorum sayısı.
// window: Sayaç pencere süresi (örn: 10 saniye).
// cooldown: Limit aşıldığında uygulanan ceza süresi (örn: 30 saniye).
//
// Kullanım:
//
//	limiter := ratelimit.NewCommentRateLimiter(5, 10*time.Second, 30*time.Second)
//	// Comment handler'da:
//	if !limiter.Allow(userID) { return 429 }
type CommentRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*commentBucket
	maxComments int
	window      time.Duration
	cooldown    time.Duration
	stopCleanup chan struct{}
}

// NewCommentRateLimiter, yeni yorum rate limiter oluşturur ve arka plan
// temizleme goroutine'ini başlatır.
func NewCommentRateLimiter(maxComments int, window, cooldown time.Duration) *CommentRateLimiter {
	rl := &CommentRateLimiter{
		buckets:     make(map[string]*commentBucket),
		maxComments: maxComments,
		window:      window,
		cooldown:    cooldown,
		stopCleanup: make(chan struct{}),
	}

	// Background cleanup — süresi dolmuş bucket'ları temizler.
	// Yorum bucket'ları kısa ömürlü, ama çok sayıda kullanıcıda
	// bellek birikmesini önlemek için gerekli.
	go rl.cleanupLoop()

	return rl
}

// Allow, verilen kullanıcının yorum yazmasına izin verilip verilmediğini kontrol eder.
//
// true: Yorum kabul edildi (limit aşılmadı).
// false: Rate limit aşıldı → caller 429 dönmeli.
//
// Akış:
// 1. Cooldown'daysa → reject (cooldown bitmeden hiçbir yorum geçmez).
// 2. Window dolmuşsa → yeni pencere başlat.
// 3. Window içindeyse → count artır, max aşıldıysa cooldown başlat.
func (rl *CommentRateLimiter) Allow(userID string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		// İlk yorum — yeni bucket oluştur
		rl.buckets[userID] = &commentBucket{count: 1, windowStart: now}
		return true
	}

	// Cooldown'da mıyız?
	if !b.cooldownUntil.IsZero() && now.Before(b.cooldownUntil) {
		return false
	}

	// Cooldown bittiyse veya hiç yoksa → cooldown'ı temizle
	if !b.cooldownUntil.IsZero() {
		// Cooldown bitti — yeni pencere başlat
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	// Window süresi dolmuş mu?
	if now.Sub(b.windowStart) > rl.window {
		// Yeni pencere başlat
		b.count = 1
		b.windowStart = now
		return true
	}

	// Window içindeyiz — sayacı artır
	b.count++
	if b.count > rl.maxComments {
		// Limit aşıldı — cooldown başlat
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}

	return true
}

// CooldownSeconds, rate limit aşıldığında kalan cooldown süresini saniye
// cinsinden döner. HTTP Retry-After header değeri olarak kullanılır.
//
// Cooldown yoksa 0 döner.
func (rl *CommentRateLimiter) CooldownSeconds(userID string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[userID]
	if !exists {
		return 0
	}

	if b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := time.Until(b.cooldownUntil)
	if remaining <= 0 {
		return 0
	}

	// +1 yuvarlama — client'ın tam süreyi beklemesi için
	return int(remaining.Seconds()) + 1
}

// cleanupLoop, arka planda süresi dolmuş bucket'ları temizler.
// Her 30 saniyede bir çalışır.
func (rl *CommentRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, süresi dolmuş tüm bucket'ları siler.
//
// Silme koşulu: hem window süresi geçmiş hem cooldown bitmiş (veya hiç yoksa).
// Bu, cooldown'daki kullanıcıların bucket'ını yanlışlıkla silmeyi önler.
func (rl *CommentRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)

		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}
