// Package services, presence ve kanal seçim iş mantığını yönetir.
//
// Katmanlar arasındaki yeri: handlers/ws → services → repository.
// Her service bir interface olarak tanımlanır, dependency'ler constructor
// injection ile geçilir — testlerde fake implementasyonlar kullanılır.
package services

import "github.com/akinalp/oda/models"

// Aggregate, kullanıcının canlı bağlantı set'inden tek bir görünür
// status türetir. Pure function — I/O yok, clock yok, aynı input her
// zaman aynı output'u verir.
//
// Kurallar (öncelik sırasıyla):
//  1. Hiç canlı bağlantı yoksa → nil (çağıran "kullanıcı offline'a
//     düştü" kararını verir)
//  2. Kullanıcının mevcut durable status'u sticky ise (idle/offline,
//     yani kendi seçimi) → bağlantı aktivitesi onu ezemez, aynen korunur
//  3. TÜM bağlantılar sleep bildiriyorsa → sleep
//  4. Aksi halde → online (tek bir aktif cihaz yeter)
func Aggregate(conns []models.Connection, current models.OnlineStatus) *models.OnlineStatus {
	if len(conns) == 0 {
		return nil
	}

	if current.Sticky() {
		s := current
		return &s
	}

	allSleep := true
	for _, c := range conns {
		if c.Status != models.StatusSleep {
			allSleep = false
			break
		}
	}

	s := models.StatusOnline
	if allSleep {
		s = models.StatusSleep
	}
	return &s
}
