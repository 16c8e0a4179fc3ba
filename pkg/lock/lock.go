// Package lock — dağıtık, süre sınırlı mutual-exclusion lock'u.
//
// Presence engine'de aynı kullanıcı için eşzamanlı iki mutation
// (ör. iki tab'dan aynı anda connect + disconnect) aggregate status'u
// veya kanal seçimini bozabilir. Tek serileştirme noktası bu lock'tur:
// kullanıcı başına `lock:user-connections:{userId}` anahtarı alınır,
// operasyon biter bitmez bırakılır.
//
// Neden TTL'li lock?
// Lock tutan process crash ederse kimse release edemez — deadlock olur.
// TTL sayesinde lock en geç ttl sonunda kendiliğinden düşer. Bu yüzden
// Release "best effort"tur: başarısız release loglanır ama escalate
// edilmez, TTL eninde sonunda temizler.
package lock

import (
	"context"
	"math/rand"
	"time"
)

// Varsayılan tuning değerleri. Config üzerinden ezilebilir.
const (
	DefaultTTL        = 3 * time.Second
	DefaultRetries    = 10
	DefaultRetryDelay = 200 * time.Millisecond
)

// Handle, alınmış bir lock'u temsil eder.
type Handle interface {
	// Release, lock'u bırakır. Idempotent'tir — ikinci çağrı no-op.
	// Başarısızlık loglanır, error dönmez: TTL eventual release garantisidir.
	Release(ctx context.Context)
}

// Locker, isimli bir resource üzerinde exclusive lock alma interface'i.
type Locker interface {
	// Acquire, lock alınana kadar bounded retry + jittered backoff ile
	// bekler. Retry bütçesi tükenirse pkg.ErrLockTimeout döner —
	// caller operasyonu hiçbir mutation yapmadan iptal etmelidir
	// (fail closed).
	Acquire(ctx context.Context, key string) (Handle, error)
}

// Options, lock tuning parametreleri.
type Options struct {
	TTL        time.Duration // lock'un otomatik düşme süresi
	Retries    int           // acquire deneme sayısı
	RetryDelay time.Duration // denemeler arası taban bekleme (jitter eklenir)
}

// withDefaults, sıfır değerli alanları varsayılanlarla doldurur.
func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// jitteredDelay, taban sürenin yarısı ile bir buçuk katı arasında
// rastgele bir süre döner. Jitter, aynı lock'u bekleyen isteklerin
// hep aynı anda çarpışmasını (thundering herd) engeller.
func jitteredDelay(base time.Duration) time.Duration {
	half := base / 2
	return half + time.Duration(rand.Int63n(int64(base)))
}

// UserKey, kullanıcı başına presence/selection mutation'larını
// serileştiren lock anahtarını üretir.
func UserKey(userID string) string {
	return "lock:user-connections:" + userID
}

// WithLock, fn'i lock altında çalıştırır ve HER çıkış yolunda
// (return, error, panic) lock'un bırakılmasını garanti eder.
//
// Manuel acquire/defer-release yerine bu helper kullanılır —
// release'in unutulması mümkün olmaz.
func WithLock(ctx context.Context, locker Locker, key string, fn func(ctx context.Context) error) error {
	handle, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer handle.Release(ctx)

	return fn(ctx)
}

// sleepCtx, ctx iptalini de dinleyen sleep. Lock beklerken request
// iptal edilirse hemen döner.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
