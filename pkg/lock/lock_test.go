package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akinalp/oda/pkg"
)

// fastOpts, testlerin saniyeler beklememesi için kısaltılmış tuning.
func fastOpts() Options {
	return Options{
		TTL:        100 * time.Millisecond,
		Retries:    3,
		RetryDelay: 10 * time.Millisecond,
	}
}

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	h.Release(ctx)

	// Release sonrası tekrar alınabilmeli
	h2, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	h2.Release(ctx)
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release(ctx)

	// Lock tutulurken ikinci acquire retry bütçesini tüketip timeout olmalı
	_, err = l.Acquire(ctx, "k")
	if !errors.Is(err, pkg.ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got %v", err)
	}
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	l := NewMemoryLocker(Options{
		TTL:        20 * time.Millisecond,
		Retries:    1,
		RetryDelay: 5 * time.Millisecond,
	})
	ctx := context.Background()

	// Release etmeden TTL'in dolmasını bekle — crash simülasyonu
	if _, err := l.Acquire(ctx, "k"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire after TTL expiry failed: %v", err)
	}
	h.Release(ctx)
}

func TestMemoryLocker_ReleaseIdempotent(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	h.Release(ctx)

	// İkinci release no-op — bu arada lock'u alan BAŞKASININ lock'unu silmemeli
	h2, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	h.Release(ctx)

	// h2 hâlâ tutuyor olmalı
	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, pkg.ErrLockTimeout) {
		t.Errorf("Stale handle release broke an active lock: %v", err)
	}
	h2.Release(ctx)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	wantErr := errors.New("boom")
	err := WithLock(ctx, l, "k", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected fn error to propagate, got %v", err)
	}

	// Error'a rağmen lock bırakılmış olmalı
	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Errorf("Lock not released after fn error: %v", err)
		return
	}
	h.Release(ctx)
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate")
			}
		}()
		_ = WithLock(ctx, l, "k", func(ctx context.Context) error {
			panic("boom")
		})
	}()

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Errorf("Lock not released after panic: %v", err)
		return
	}
	h.Release(ctx)
}

func TestWithLock_FailClosed(t *testing.T) {
	l := NewMemoryLocker(fastOpts())
	ctx := context.Background()

	h, err := l.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release(ctx)

	ran := false
	err = WithLock(ctx, l, "k", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, pkg.ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got %v", err)
	}
	if ran {
		t.Error("fn must not run when the lock cannot be acquired")
	}
}

func TestUserKey(t *testing.T) {
	if got := UserKey("u1"); got != "lock:user-connections:u1" {
		t.Errorf("Unexpected user lock key: %s", got)
	}
}
