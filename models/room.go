// Package models — SFU oda (room) modelleri.
package models

// RoomCredentials, bir kanalın aktif odasına bağlanmak için gereken
// tüm bilgiler. SFU Room Broker tarafından lazily üretilir ve
// `channel:sfu:{channelId}` anahtarında cache'lenir.
//
// Lifecycle: kanalı İLK seçen bağlantı oluşturur, sonraki katılımcılar
// aynı credential'ları yeniden kullanır, kanalın connection index'i
// boşaldığında cache'ten silinir (SFU'daki oda senkron kapatılmaz —
// SFU idle odaları kendisi garbage-collect eder).
type RoomCredentials struct {
	AudioRoomID      string `json:"audio_room_id"`
	VideoRoomID      string `json:"video_room_id"`
	ServerURL        string `json:"server_url"`
	WSServerURL      string `json:"ws_server_url"`
	ChannelAuthToken string `json:"channel_auth_token"` // kanala scope'lu kısa ömürlü token
	ServerAuthToken  string `json:"server_auth_token"`  // SFU API'si için server token
}

// SelectChannelRequest, kanal seçme (join) isteği.
type SelectChannelRequest struct {
	ConnectionID string     `json:"connection_id"`
	Media        MediaState `json:"media"`
}

// UnselectChannelRequest, kanal bırakma (leave) isteği.
type UnselectChannelRequest struct {
	ConnectionID string `json:"connection_id"`
}

// UpdateMediaStateRequest, mute/camera/screen/speaking güncelleme isteği.
type UpdateMediaStateRequest struct {
	ConnectionID string     `json:"connection_id"`
	Media        MediaState `json:"media"`
}
