package repository

import (
	"context"

	"github.com/akinalp/oda/models"
)

// ConnectionRepository, ephemeral bağlantı kayıtlarının store interface'i.
//
// Tek bir mantıksal kayıt, store'da DÖRT anahtara fan-out edilir:
//
//	connection:{id}          → JSON Connection (TTL'li string — source of truth)
//	user:{userId}            → hash: connectionId → JSON Connection
//	workspace:{workspaceId}  → hash: connectionId → JSON Connection
//	channel:{channelId}      → hash: connectionId → JSON Connection (sadece kanal seçiliyse)
//
// Sadece string anahtarın TTL'i vardır. Hash index'lerinde bayat entry
// kalabilir — tüm okuma yolları kayıttaki ExpiredAt'e bakarak lazy
// filtreler, eager sweep yoktur. Yazma yollarının tutarlılığı bu
// repository'de DEĞİL, çağıranın tuttuğu per-user lock'ta sağlanır.
type ConnectionRepository interface {
	// Save, kaydı dört anahtara birden yazar. Herhangi bir index yazımı
	// başarısız olursa hata döner — sessizce yarım state bırakılmaz.
	Save(ctx context.Context, conn *models.Connection) error

	// Get, canlı kaydı döner. Anahtar yok veya ExpiredAt geçmişse
	// pkg.ErrConnectionNotFound.
	Get(ctx context.Context, connectionID string) (*models.Connection, error)

	// Delete, kaydı dört anahtardan da söker. Kayıt yoksa no-op.
	Delete(ctx context.Context, conn *models.Connection) error

	// RemoveFromChannel, bağlantıyı sadece channel index'inden çıkarır.
	// Kanal bırakılırken kullanılır — kayıt yaşamaya devam eder.
	RemoveFromChannel(ctx context.Context, channelID, connectionID string) error

	// GetUserConnections, kullanıcının canlı bağlantılarını döner.
	// workspaceID boş değilse o workspace'e filtrelenir.
	GetUserConnections(ctx context.Context, userID, workspaceID string) ([]models.Connection, error)

	GetWorkspaceConnections(ctx context.Context, workspaceID string) ([]models.Connection, error)
	GetChannelConnections(ctx context.Context, channelID string) ([]models.Connection, error)

	// CountChannelConnections, kanaldaki canlı bağlantı sayısı.
	// 0 → kanalın odası teardown edilebilir.
	CountChannelConnections(ctx context.Context, channelID string) (int, error)

	// IsUserInChannel, kullanıcının EN AZ BİR canlı bağlantısının verilen
	// kanalı seçmiş olup olmadığını döner.
	IsUserInChannel(ctx context.Context, userID, channelID string) (bool, error)
}

// Store anahtar şemaları. Tüm anahtar üretimi burada toplanır —
// format tek yerden değişir.
func ConnectionKey(connectionID string) string { return "connection:" + connectionID }
func UserConnectionsKey(userID string) string  { return "user:" + userID }
func WorkspaceConnectionsKey(workspaceID string) string {
	return "workspace:" + workspaceID
}
func ChannelConnectionsKey(channelID string) string { return "channel:" + channelID }
