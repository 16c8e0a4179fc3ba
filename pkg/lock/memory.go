// Package lock — in-process implementasyon.
//
// MemoryLocker, tek instance'lı çalışmada ve testlerde Redis'siz lock
// sağlar. Semantik Redis ile birebir: TTL'li, token sahipli,
// bounded-retry'li. Horizontal scaling'de KULLANILMAZ — process'ler
// arası görünürlüğü yoktur.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/oda/pkg"
)

// memEntry, tutulan bir lock'un sahibi ve son kullanma tarihi.
type memEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker, Locker'ın in-process implementasyonu.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memEntry
	opts  Options
}

// NewMemoryLocker, constructor.
func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]memEntry),
		opts:  opts.withDefaults(),
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Handle, error) {
	token := uuid.NewString()

	for attempt := 0; attempt < l.opts.Retries; attempt++ {
		if l.tryAcquire(key, token) {
			return &memHandle{locker: l, key: key, token: token}, nil
		}

		if attempt == l.opts.Retries-1 {
			break
		}
		if err := sleepCtx(ctx, jitteredDelay(l.opts.RetryDelay)); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", pkg.ErrLockTimeout, key)
}

// tryAcquire, anahtar boşsa veya süresi dolmuşsa lock'u alır.
func (l *MemoryLocker) tryAcquire(key, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.locks[key]
	if held && time.Now().Before(entry.expiresAt) {
		return false
	}
	l.locks[key] = memEntry{token: token, expiresAt: time.Now().Add(l.opts.TTL)}
	return true
}

// release, sahiplik token'ı eşleşiyorsa lock'u siler (compare-and-delete).
func (l *MemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[key]; ok && entry.token == token {
		delete(l.locks, key)
	}
}

// memHandle, alınmış bir in-process lock'u temsil eder.
type memHandle struct {
	locker *MemoryLocker
	key    string
	token  string

	once sync.Once
}

func (h *memHandle) Release(_ context.Context) {
	h.once.Do(func() {
		h.locker.release(h.key, h.token)
	})
}
