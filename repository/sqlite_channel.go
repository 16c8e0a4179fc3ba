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

type sqliteChannelRepo struct {
	db database.TxQuerier
}

func NewSQLiteChannelRepo(db database.TxQuerier) ChannelRepository {
	return &sqliteChannelRepo{db: db}
}

func (r *sqliteChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `
		SELECT id, workspace_id, name, position, created_at
		FROM channels WHERE id = ?`

	ch := &models.Channel{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.Position, &ch.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

func (r *sqliteChannelRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Channel, error) {
	query := `
		SELECT id, workspace_id, name, position, created_at
		FROM channels WHERE workspace_id = ?
		ORDER BY position, name`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.Position, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *sqliteChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (id, workspace_id, name, position)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		channel.WorkspaceID, channel.Name, channel.Position,
	).Scan(&channel.ID, &channel.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	return nil
}
