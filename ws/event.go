// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder — her client bir
//   Connection kaydına (connection id) karşılık gelir
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı:
// 1. Bir mutation gerçekleşir (connect, kanal seçimi, media değişimi)
// 2. Service, Hub'ın Publish* metodlarından birini çağırır
// 3. Hub hedef scope'taki bağlantıları bulur ve event'i iletir
// 4. Her client'ın WritePump'ı event'i WebSocket'e yazar
//
// Event dağıtımı mutation'dan SONRA ve transaction dışıdır — bir
// event'in kaybolması state'i bozmaz, client bir sonraki fetch'te
// gerçeği görür.
package ws

import "github.com/akinalp/oda/models"

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "online_status_update", "heartbeat" vb.
// Data: Event'e özgü payload.
// Seq (sequence number): Her outbound event'e verilen artan sayı.
// Frontend eksik event tespit etmek için seq'i takip eder.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat" // "hâlâ bağlıyım" sinyali — connection lifespan'ını uzatır
	OpResume    = "resume"    // kopan socket'in eski connection id'sini devralma isteği
)

// Server → Client operasyonları
const (
	OpReady          = "ready"           // El sıkışma tamam — connection kaydı payload'da
	OpHeartbeatAck   = "heartbeat_ack"   // Heartbeat'e yanıt, yeni expired_at içerir
	OpSessionExpired = "session_expired" // Connection kaydı TTL ile ölmüş — client yeniden bağlanmalı

	OpOnlineStatusUpdate = "online_status_update" // Kullanıcının aggregate status'u değişti
	OpChannelSelect      = "channel_select"       // Bir bağlantı kanala katıldı
	OpChannelUnselect    = "channel_unselect"     // Bir bağlantı kanaldan ayrıldı
	OpMediaStateUpdate   = "media_state_update"   // Kanal içi mic/camera/screen/speaking değişimi
)

// OnlineStatusData, online_status_update event payload'ı.
// Kullanıcının üye olduğu her workspace scope'una ayrı ayrı yayınlanır.
type OnlineStatusData struct {
	UserID string              `json:"user_id"`
	Status models.OnlineStatus `json:"status"`
}

// ChannelPresenceData, channel_select / channel_unselect payload'ı.
type ChannelPresenceData struct {
	UserID       string            `json:"user_id"`
	ConnectionID string            `json:"connection_id"`
	ChannelID    string            `json:"channel_id"`
	Media        models.MediaState `json:"media"`
}

// MediaStateData, media_state_update payload'ı.
type MediaStateData struct {
	UserID       string            `json:"user_id"`
	ConnectionID string            `json:"connection_id"`
	ChannelID    string            `json:"channel_id"`
	Media        models.MediaState `json:"media"`
}

// HeartbeatAckData, heartbeat_ack payload'ı.
type HeartbeatAckData struct {
	ExpiredAt int64 `json:"expired_at"` // unix saniye — bir sonraki deadline
}

// ResumeData, client'ın resume isteğinin payload'ı.
type ResumeData struct {
	ConnectionID string `json:"connection_id"` // devralınmak istenen eski id
}
