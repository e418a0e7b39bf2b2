// Package ratelimit — login ve yorum endpoint'lerinin istek sınırlayıcıları.
//
// LoginRateLimiter: IP bazlı sliding window ile brute-force koruması.
// Bu projede login'in arkasında cihaz tanıma var — her başarılı giriş
// tanınmayan bir cihazdan geliyorsa güvenlik bildirimi üretir. Parola
// denemelerini IP'de durdurmak hem hesapları korur hem de device alert
// kanalını gürültüden uzak tutar.
//
// Neden in-memory?
// - SQLite'a her login denemesinde yazmak gereksiz I/O + contention demek.
// - Deploy tek instance: Redis gibi dış bağımlılık getirmeye değmez.
// - sync.RWMutex ile thread-safe: RLock okuma, Lock yazma.
//
// Neden ayrı paket?
// handlers ↔ middleware arasında import cycle oluşmasın diye limiter
// bağımsız bir pakettir; proje içi hiçbir pakete bağımlı değildir
// (leaf dependency). Yorum tarafının kullanıcı bazlı limiter'ı için
// comment_ratelimit.go'ya bak.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// bucket, tek bir IP'nin deneme sayacı ve pencere başlangıcı.
//
// Sliding window:
// - İlk deneme: windowStart = now, count = 1.
// - Pencere içindeki denemeler count'u artırır.
// - windowStart + window geçildiyse pencere sıfırdan başlar.
type bucket struct {
	count       int
	windowStart time.Time
}

// LoginRateLimiter, IP bazlı login deneme sınırlayıcısı.
//
// maxAttempts: bir pencere içinde izin verilen deneme sayısı.
// window: pencere süresi (örn: 2 dakika).
//
// Kullanım:
//
//	limiter := NewLoginRateLimiter(5, 2*time.Minute)
//	// Login handler'da:
//	if !limiter.Allow(ip) { return 429 }
//	// Başarılı login'de:
//	limiter.Reset(ip)
type LoginRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	stopCleanup chan struct{}
}

// NewLoginRateLimiter, limiter'ı oluşturur ve arka plan temizleme
// goroutine'ini başlatır.
//
// Temizleyici her dakika süresi geçmiş bucket'ları siler — uzun süre
// çalışan sunucuda her denenmiş IP için map'te kayıt birikmesin.
func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, bu IP'den bir login denemesine daha izin verilip verilmediğini döner.
//
// true: deneme kabul — limit aşılmadı.
// false: limit aşıldı — caller 429 + Retry-After dönmeli.
//
// Her çağrı sayacı artırır, parola doğru olsun olmasın. Başarılı login'de
// caller Reset() çağırır; aksi halde meşru kullanıcı kendi başarılı
// girişleriyle limiti doldurabilir.
func (rl *LoginRateLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		// Pencere dolmuş — yeni pencere, sayaç baştan
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// Reset, başarılı login sonrası IP'nin sayacını siler.
func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, ip)
}

// RetryAfterSeconds, limit aşıldığında pencerenin kapanmasına kalan süreyi
// saniye olarak döner. HTTP Retry-After header değeri olarak kullanılır.
func (rl *LoginRateLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[ip]
	if !exists {
		return 0
	}

	remaining := rl.window - time.Since(b.windowStart)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1 // yukarı yuvarla — client erken dönmesin
}

// cleanupLoop, 60 saniyede bir süresi geçmiş bucket'ları temizler.
func (rl *LoginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
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

func (rl *LoginRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// ExtractIP, request'ten client IP'sini çıkarır. Aynı IP hem burada hem de
// cihaz parmak izinde (ip + user agent hash'i) kullanılır — iki yerin aynı
// değeri görmesi önemli.
//
// Öncelik:
//  1. X-Forwarded-For (reverse proxy arkasında, listenin ilk IP'si)
//  2. X-Real-IP (nginx tarzı proxy'ler ekler)
//  3. RemoteAddr (doğrudan bağlantı)
//
// Proxy arkasında RemoteAddr her zaman proxy'nin adresidir; gerçek client
// header'lardadır.
func ExtractIP(r *http.Request) string {
	// X-Forwarded-For: client, proxy1, proxy2 — ilk değer gerçek client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, kalan süreyi hata mesajı için okunabilir hale getirir.
// Örn: 120 → "2 minute(s)", 45 → "45 second(s)".
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
