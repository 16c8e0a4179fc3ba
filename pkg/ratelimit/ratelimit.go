// Package ratelimit — IP bazlı deneme sınırlama (brute-force koruması).
//
// Tasarım:
// - Her IP için sliding window ile istek sayısı takip edilir.
// - Window içinde maxAttempts aşılırsa istek reddedilir.
// - Başarılı deneme sonrası Reset() ile sayaç sıfırlanır.
// - Background goroutine süresi dolmuş bucket'ları temizler.
//
// Neden in-memory (kvstore değil)?
// Rate limit sayacının instance'lar arası paylaşılması şart değil —
// saldırgan her instance'ta ayrı ayrı limitlenir, koruma bozulmaz.
// Store round-trip'i her login denemesine eklemeye değmez.
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency) —
// handlers ↔ middleware arasında import cycle oluşmaz.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// bucket, bir IP için istek sayacı ve window başlangıcı.
type bucket struct {
	count       int
	windowStart time.Time
}

// AttemptLimiter, IP bazlı deneme sınırlayıcı.
//
// Kullanım:
//
//	limiter := ratelimit.NewAttemptLimiter(5, 2*time.Minute)
//	if !limiter.Allow(ip) { /* 429 */ }
//	// başarılı denemede:
//	limiter.Reset(ip)
type AttemptLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	stopCleanup chan struct{}
}

// NewAttemptLimiter, yeni limiter oluşturur ve arka plan temizleme
// goroutine'ini başlatır — uzun süre çalışan sunucularda bucket map'i
// sınırsız büyümez.
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	rl := &AttemptLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, IP'nin yeni bir denemesine izin verilip verilmediğini döner.
// Her çağrı sayacı artırır; başarılı denemede caller Reset() çağırmalı.
func (rl *AttemptLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		// Yeni pencere — eski sayaç sıfırlanır
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// Reset, başarılı deneme sonrası IP sayacını sıfırlar — meşru kullanıcı
// sonraki denemelerde bloke olmaz.
func (rl *AttemptLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, ip)
}

// RetryAfterSeconds, limit aşıldığında kalan bekleme süresi (saniye).
// HTTP Retry-After header değeri olarak kullanılır.
func (rl *AttemptLimiter) RetryAfterSeconds(ip string) int {
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
	return int(remaining.Seconds()) + 1 // +1 yuvarlama
}

// Stop, temizleme goroutine'ini durdurur (graceful shutdown).
func (rl *AttemptLimiter) Stop() {
	close(rl.stopCleanup)
}

func (rl *AttemptLimiter) cleanupLoop() {
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

func (rl *AttemptLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
// Öncelik: X-Forwarded-For (ilk IP) → X-Real-IP → RemoteAddr.
// Production'da uygulama genellikle bir reverse proxy arkasındadır —
// RemoteAddr o durumda proxy'nin adresidir.
func ExtractIP(r *http.Request) string {
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

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
