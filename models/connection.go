// Package models — connection (bağlantı) modelleri.
//
// Connection, bir kullanıcının TEK bir cihaz/socket oturumunu temsil eder.
// Bu veri EPHEMERAL'dır (geçicidir) — SQLite'a değil, paylaşımlı TTL
// store'a (Redis) yazılır. Heartbeat gelmediği sürece ExpiredAt geçer ve
// kayıt ölü sayılır; explicit bir "disconnect" sinyali şart değildir.
//
// Neden in-memory map değil de paylaşımlı store?
// Birden fazla server instance'ı aynı presence gerçeğini görmek zorunda —
// horizontal scaling'de tek process'in RAM'i yeterli değil.
package models

import "time"

// MediaState, bir bağlantının anlık medya durumu.
// Hem select/updateMediaState istekleri hem de WS event payload'ları
// için kullanılır.
type MediaState struct {
	Microphone bool `json:"microphone"`
	Camera     bool `json:"camera"`
	Screen     bool `json:"screen"`
	Speaker    bool `json:"speaker"`
	Speaking   bool `json:"speaking"`
}

// Connection, canlı bir cihaz oturumunun kaydı.
//
// Invariant'lar:
//   - ChannelID dolu ise bağlantı o kanalın channel index'inde de bulunmalı.
//   - ExpiredAt sadece ileri alınır (keepAlive) veya kayıt silinir —
//     oluşturma dışında asla geri çekilmez.
type Connection struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	UserID      string       `json:"user_id"`
	ChannelID   string       `json:"channel_id,omitempty"` // boş = hiçbir kanal seçili değil
	Status      OnlineStatus `json:"status"`               // bu CİHAZIN bildirdiği durum
	Media       MediaState   `json:"media"`
	TimeZone    string       `json:"time_zone"` // IANA, ör: "Europe/Istanbul"
	ExpiredAt   time.Time    `json:"expired_at"`
}

// Expired, bağlantının ölü sayılıp sayılmayacağını döner.
// Index'lerde bayat kayıt kalabilir — okuma yolları bu kontrolle
// lazy filtreleme yapar, eager sweep yoktur.
func (c *Connection) Expired(now time.Time) bool {
	return now.After(c.ExpiredAt)
}

// ConnectRequest, yeni bir bağlantı kaydı için gereken veri.
type ConnectRequest struct {
	ConnectionID string       `json:"connection_id"`
	WorkspaceID  string       `json:"workspace_id"`
	UserID       string       `json:"user_id"`
	Status       OnlineStatus `json:"status"`
	Media        MediaState   `json:"media"`
	TimeZone     string       `json:"time_zone"`
}
