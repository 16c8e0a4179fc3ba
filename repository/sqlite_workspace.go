package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/oda/database"
	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
)

type sqliteWorkspaceRepo struct {
	db database.TxQuerier
}

func NewSQLiteWorkspaceRepo(db database.TxQuerier) WorkspaceRepository {
	return &sqliteWorkspaceRepo{db: db}
}

func (r *sqliteWorkspaceRepo) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	query := `
		SELECT id, name, icon_url, owner_id, created_at
		FROM workspaces WHERE id = ?`

	ws := &models.Workspace{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.IconURL, &ws.OwnerID, &ws.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return ws, nil
}

// GetWorkspacesForUser, kullanıcının üye olduğu tüm workspace'leri döner.
// JOIN: workspace_members tablosu üzerinden üyelikleri workspace'lere bağlar.
func (r *sqliteWorkspaceRepo) GetWorkspacesForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.icon_url, w.owner_id, w.created_at
		FROM workspaces w
		INNER JOIN workspace_members wm ON wm.workspace_id = w.id
		WHERE wm.user_id = ?
		ORDER BY w.name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspaces for user: %w", err)
	}
	defer rows.Close() // rows'u kapatmayı ASLA unutma — aksi halde bağlantı sızar

	var workspaces []models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.IconURL, &w.OwnerID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace row: %w", err)
		}
		workspaces = append(workspaces, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspace rows: %w", err)
	}

	return workspaces, nil
}

func (r *sqliteWorkspaceRepo) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	query := `SELECT 1 FROM workspace_members WHERE workspace_id = ? AND user_id = ?`

	var one int
	err := r.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check workspace membership: %w", err)
	}

	return true, nil
}

func (r *sqliteWorkspaceRepo) Create(ctx context.Context, workspace *models.Workspace) error {
	query := `
		INSERT INTO workspaces (id, name, icon_url, owner_id)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		workspace.Name, workspace.IconURL, workspace.OwnerID,
	).Scan(&workspace.ID, &workspace.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

func (r *sqliteWorkspaceRepo) AddMember(ctx context.Context, workspaceID, userID string) error {
	// INSERT OR IGNORE: zaten üyeyse sessizce geç — üyelik ekleme idempotent.
	query := `INSERT OR IGNORE INTO workspace_members (workspace_id, user_id) VALUES (?, ?)`

	if _, err := r.db.ExecContext(ctx, query, workspaceID, userID); err != nil {
		return fmt.Errorf("failed to add workspace member: %w", err)
	}

	return nil
}
