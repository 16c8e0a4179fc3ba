// Package sfu, SFU (Selective Forwarding Unit) media sunucusuyla olan
// sınırı tanımlar.
//
// Bu modül SFU'nun KENDİSİ değildir — media akışı client ile SFU arasında
// doğrudan kurulur. Buradaki sorumluluk sadece oda tahsisi ve token
// üretimidir; seçim koordinatörü odaların ne zaman var olacağına karar
// verir, SFU idle odaları kendi garbage-collect eder.
package sfu

import "context"

// RoomAllocation, yeni tahsis edilmiş bir odanın kimliği ve server token'ı.
type RoomAllocation struct {
	AudioRoomID     string
	VideoRoomID     string
	ServerURL       string
	WSServerURL     string
	ServerAuthToken string
}

// Client, SFU ile konuşan adapter interface'i.
//
// İki implementasyon: LiveKit (production, bkz. livekit.go) ve testlerdeki
// fake'ler. Seçim koordinatörü ve room broker sadece bu interface'i görür.
type Client interface {
	// AllocateRoom, kanal için taze oda kimlikleri ve server token'ı üretir.
	// Her çağrı YENİ kimlikler döner — teardown sonrası bayat oda yeniden
	// kullanılmaz.
	AllocateRoom(ctx context.Context, channelID string) (*RoomAllocation, error)

	// IssueChannelToken, kullanıcıya verilen odaya scope'lu kısa ömürlü
	// bir katılım token'ı üretir. roomID, aktif allocation'dan gelir —
	// geç katılanlar da aynı canlı odaya token alır.
	IssueChannelToken(ctx context.Context, roomID, userID string) (string, error)
}
