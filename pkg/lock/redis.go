// Package lock — Redis implementasyonu.
package lock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akinalp/oda/pkg"
)

// releaseScript, lock'u sadece SAHİBİ bırakabilsin diye compare-and-delete
// yapar. GET + DEL iki ayrı komut olsaydı arada TTL dolup lock'u başka
// bir istek alabilirdi — o durumda DEL başkasının lock'unu silerdi.
// Lua script Redis'te atomik çalışır.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker, Locker interface'inin Redis implementasyonu.
//
// Acquire SET NX PX ile dener: anahtar yoksa yazar (lock alındı),
// varsa false döner (başkası tutuyor). Value olarak rastgele token
// yazılır — release sırasında sahiplik bu token ile doğrulanır.
type RedisLocker struct {
	client *redis.Client
	opts   Options
}

// NewRedisLocker, constructor.
func NewRedisLocker(client *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{
		client: client,
		opts:   opts.withDefaults(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Handle, error) {
	token := uuid.NewString()

	for attempt := 0; attempt < l.opts.Retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock acquire %s: %w", key, err)
		}
		if ok {
			return &redisHandle{client: l.client, key: key, token: token}, nil
		}

		// Lock dolu — jittered backoff ile tekrar dene.
		// Son denemeden sonra beklemenin anlamı yok.
		if attempt == l.opts.Retries-1 {
			break
		}
		if err := sleepCtx(ctx, jitteredDelay(l.opts.RetryDelay)); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", pkg.ErrLockTimeout, key)
}

// redisHandle, alınmış bir Redis lock'unu temsil eder.
type redisHandle struct {
	client *redis.Client
	key    string
	token  string

	once sync.Once
}

// Release, compare-and-delete ile lock'u bırakır.
// Idempotent: sync.Once ikinci çağrıyı no-op yapar.
// Best effort: hata loglanır, escalate edilmez — TTL eninde sonunda
// lock'u düşürür, caller'ın yapabileceği ek bir şey yoktur.
func (h *redisHandle) Release(ctx context.Context) {
	h.once.Do(func() {
		// Release genellikle request context'i iptal edildikten sonra da
		// çalışmalı (defer içinden) — kısa bağımsız timeout kullan.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if err := h.client.Eval(ctx, releaseScript, []string{h.key}, h.token).Err(); err != nil {
			log.Printf("[lock] failed to release %s: %v (ttl will expire it)", h.key, err)
		}
	})
}
