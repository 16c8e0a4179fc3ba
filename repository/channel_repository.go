package repository

import (
	"context"

	"github.com/akinalp/oda/models"
)

// ChannelRepository, kalıcı kanal kayıtları için interface.
//
// Seçim koordinatörü sadece GetByID kullanır — select edilmek istenen
// kanalın gerçekten var olduğunu doğrulamak için. ListByWorkspace ise
// client'ın kanal listesini çizmesi için.
type ChannelRepository interface {
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
}
