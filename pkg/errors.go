// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrConnectionNotFound) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Genel error'lar.
// Handler katmanı bu error'ları HTTP status code'larına map'ler.
// Service katmanı bunları döner, handler yakalar.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// Presence / kanal seçimi error'ları.
//
// İki sınıf vardır:
//   - NotFound sınıfı (connection/channel yok): client error, retry edilmez.
//   - Conflict sınıfı (state machine invariant'ı ihlali): her zaman caller'a
//     döner, server tarafında ASLA sessizce çözülmez — çünkü çözmek,
//     client/server state ayrışmasını gizler; client reconcile etmek zorunda.
var (
	// ErrConnectionNotFound: verilen id ile canlı bir Connection yok
	// (hiç olmamış veya TTL'i dolmuş — ikisi ayırt edilmez).
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrChannelNotFound: referans verilen kanal mevcut değil.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelAlreadySelected: bağlantı zaten BAŞKA bir kanal seçmiş.
	// Coordinator implicit migration yapmaz — caller önce unselect etmeli.
	ErrChannelAlreadySelected = errors.New("channel already selected")

	// ErrChannelNotSelected: bağlantının seçili hiçbir kanalı yok.
	ErrChannelNotSelected = errors.New("channel is not selected")

	// ErrChannelSelectedElsewhere: bağlantının kayıtlı kanalı, bırakılmak
	// istenen kanaldan farklı — client'ın state'i bayat.
	ErrChannelSelectedElsewhere = errors.New("channel is selected on another device")

	// ErrActiveConversation: kanal "aktif görüşme" işaretli — oda bir
	// görüşmenin ortasındayken terk edilemez.
	ErrActiveConversation = errors.New("channel has an active conversation")

	// ErrLockTimeout: per-user lock retry bütçesi tükendi. Mutation
	// başlamadan operasyon iptal edilir (fail closed) — caller tüm
	// operasyonu, mevcut state'i kontrol ederek tekrar deneyebilir.
	ErrLockTimeout = errors.New("lock acquisition timed out")
)
