package repository

import (
	"context"

	"github.com/akinalp/oda/models"
)

// WorkspaceRepository, workspace ve üyelik sorguları için interface.
//
// Presence fan-out'u buna dayanır: bir kullanıcının status'u değiştiğinde
// event, kullanıcının üye olduğu TÜM workspace'lere yayınlanır —
// GetWorkspacesForUser bu listeyi verir.
type WorkspaceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workspace, error)
	GetWorkspacesForUser(ctx context.Context, userID string) ([]models.Workspace, error)

	// IsMember, WS el sıkışmasında çağrılır — üye olmayan bir kullanıcının
	// workspace'e bağlantı açması reddedilir.
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)

	Create(ctx context.Context, workspace *models.Workspace) error
	AddMember(ctx context.Context, workspaceID, userID string) error
}
