// Package models — kanal modelleri.
package models

import "time"

// Channel, bir workspace içindeki sesli/görüntülü odayı temsil eder.
//
// Kanalın kendisi kalıcıdır (SQLite); kanalın "aktif odası" ise
// ephemeral'dır — ilk katılan bağlantı SFU'dan oda aldırır, son
// bağlantı ayrılınca oda credential'ları cache'ten silinir
// (bkz. services.RoomService).
type Channel struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
