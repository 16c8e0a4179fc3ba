// Package kvstore — paylaşımlı TTL store adapter'ı.
//
// Presence engine'in TÜM ephemeral state'i (connection kayıtları,
// index hash'leri, oda credential cache'i) bu interface üzerinden okunur
// ve yazılır. Store horizontal scaling'de tüm server instance'ları
// arasında paylaşılır — production'da Redis, testlerde in-memory.
//
// Neden interface?
// Global bir client'a ambient erişim yerine, store her component'in
// constructor'ına explicit dependency olarak enjekte edilir. Böylece:
// 1. Testlerde Memory implementasyonu ile Redis'siz çalışılır
// 2. Hangi component'in store'a dokunduğu imzalardan okunur
package kvstore

import (
	"context"
	"time"
)

// Store, string / hash / set operasyonlarını sağlayan adapter interface'i.
//
// Anahtar yoksa Get/HGet hata DEĞİL, boş string döner — "yok" bu domain'de
// normal bir durumdur (TTL dolmuş bağlantı, teardown edilmiş oda).
// Error sadece altyapı hatası (ağ, store down) anlamına gelir.
type Store interface {
	// Get, string anahtarın değerini döner; anahtar yoksa ("", nil).
	Get(ctx context.Context, key string) (string, error)

	// Set, string anahtarı yazar. ttl == 0 ise anahtar süresiz yaşar.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX, anahtar YOKSA yazar ve true döner; anahtar zaten varsa
	// dokunmaz ve false döner. Farklı lock'lar altındaki yazarların
	// aynı anahtara yarıştığı yerlerde (oda cache'i) ilk yazan kazanır.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete, anahtarı siler; anahtar yoksa hata vermez.
	Delete(ctx context.Context, key string) error

	// HGet, hash'teki tek field'ı döner; hash/field yoksa ("", nil).
	HGet(ctx context.Context, key, field string) (string, error)

	// HSet, hash'teki field'ı yazar.
	HSet(ctx context.Context, key, field, value string) error

	// HDel, hash'ten field siler; field yoksa hata vermez.
	HDel(ctx context.Context, key string, fields ...string) error

	// HGetAll, hash'in tüm field→value map'ini döner; hash yoksa boş map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// SAdd / SRem / SMembers — set operasyonları.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Exists, anahtarın var olup olmadığını döner.
	Exists(ctx context.Context, key string) (bool, error)
}
