package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/kvstore"
)

// kvConnectionRepo, ConnectionRepository'nin kvstore implementasyonu.
//
// SQLite değil — bağlantı kayıtları sunucular arası paylaşılan TTL
// store'da yaşar. Kayıt formatı JSON: hash field'larına da aynı JSON
// yazılır, böylece index okumaları ikinci bir round-trip gerektirmez.
type kvConnectionRepo struct {
	store kvstore.Store
}

func NewKVConnectionRepo(store kvstore.Store) ConnectionRepository {
	return &kvConnectionRepo{store: store}
}

func (r *kvConnectionRepo) Save(ctx context.Context, conn *models.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	ttl := time.Until(conn.ExpiredAt)
	if ttl <= 0 {
		return fmt.Errorf("connection %s already expired, refusing to save", conn.ID)
	}

	// Source of truth önce: string anahtar TTL taşır, index'ler taşımaz.
	if err := r.store.Set(ctx, ConnectionKey(conn.ID), string(data), ttl); err != nil {
		return fmt.Errorf("failed to save connection record: %w", err)
	}

	if err := r.store.HSet(ctx, UserConnectionsKey(conn.UserID), conn.ID, string(data)); err != nil {
		return fmt.Errorf("failed to index connection by user: %w", err)
	}
	if err := r.store.HSet(ctx, WorkspaceConnectionsKey(conn.WorkspaceID), conn.ID, string(data)); err != nil {
		return fmt.Errorf("failed to index connection by workspace: %w", err)
	}
	if conn.ChannelID != "" {
		if err := r.store.HSet(ctx, ChannelConnectionsKey(conn.ChannelID), conn.ID, string(data)); err != nil {
			return fmt.Errorf("failed to index connection by channel: %w", err)
		}
	}

	return nil
}

func (r *kvConnectionRepo) Get(ctx context.Context, connectionID string) (*models.Connection, error) {
	raw, err := r.store.Get(ctx, ConnectionKey(connectionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read connection record: %w", err)
	}
	if raw == "" {
		return nil, pkg.ErrConnectionNotFound
	}

	var conn models.Connection
	if err := json.Unmarshal([]byte(raw), &conn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
	}

	// TTL henüz süpürmemiş olabilir — ExpiredAt geçmişse kayıt ölü sayılır.
	if conn.Expired(time.Now()) {
		return nil, pkg.ErrConnectionNotFound
	}

	return &conn, nil
}

func (r *kvConnectionRepo) Delete(ctx context.Context, conn *models.Connection) error {
	if err := r.store.HDel(ctx, UserConnectionsKey(conn.UserID), conn.ID); err != nil {
		return fmt.Errorf("failed to remove connection from user index: %w", err)
	}
	if err := r.store.HDel(ctx, WorkspaceConnectionsKey(conn.WorkspaceID), conn.ID); err != nil {
		return fmt.Errorf("failed to remove connection from workspace index: %w", err)
	}
	if conn.ChannelID != "" {
		if err := r.store.HDel(ctx, ChannelConnectionsKey(conn.ChannelID), conn.ID); err != nil {
			return fmt.Errorf("failed to remove connection from channel index: %w", err)
		}
	}
	if err := r.store.Delete(ctx, ConnectionKey(conn.ID)); err != nil {
		return fmt.Errorf("failed to delete connection record: %w", err)
	}

	return nil
}

func (r *kvConnectionRepo) RemoveFromChannel(ctx context.Context, channelID, connectionID string) error {
	if err := r.store.HDel(ctx, ChannelConnectionsKey(channelID), connectionID); err != nil {
		return fmt.Errorf("failed to remove connection from channel index: %w", err)
	}
	return nil
}

func (r *kvConnectionRepo) GetUserConnections(ctx context.Context, userID, workspaceID string) ([]models.Connection, error) {
	conns, err := r.readIndex(ctx, UserConnectionsKey(userID))
	if err != nil {
		return nil, err
	}

	if workspaceID == "" {
		return conns, nil
	}

	filtered := conns[:0]
	for _, c := range conns {
		if c.WorkspaceID == workspaceID {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (r *kvConnectionRepo) GetWorkspaceConnections(ctx context.Context, workspaceID string) ([]models.Connection, error) {
	return r.readIndex(ctx, WorkspaceConnectionsKey(workspaceID))
}

func (r *kvConnectionRepo) GetChannelConnections(ctx context.Context, channelID string) ([]models.Connection, error) {
	return r.readIndex(ctx, ChannelConnectionsKey(channelID))
}

func (r *kvConnectionRepo) CountChannelConnections(ctx context.Context, channelID string) (int, error) {
	conns, err := r.readIndex(ctx, ChannelConnectionsKey(channelID))
	if err != nil {
		return 0, err
	}
	return len(conns), nil
}

func (r *kvConnectionRepo) IsUserInChannel(ctx context.Context, userID, channelID string) (bool, error) {
	conns, err := r.readIndex(ctx, ChannelConnectionsKey(channelID))
	if err != nil {
		return false, err
	}
	for _, c := range conns {
		if c.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// readIndex, bir hash index'ini okur ve canlı kayıtları döner.
//
// Bayat (expired) veya bozuk entry'ler atlanır ve fırsatçı olarak
// index'ten silinir — silme best-effort'tur, hata okuma sonucunu bozmaz.
func (r *kvConnectionRepo) readIndex(ctx context.Context, key string) ([]models.Connection, error) {
	entries, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection index %s: %w", key, err)
	}

	now := time.Now()
	conns := make([]models.Connection, 0, len(entries))
	var stale []string

	for field, raw := range entries {
		var conn models.Connection
		if err := json.Unmarshal([]byte(raw), &conn); err != nil {
			log.Printf("[connections] dropping corrupt index entry %s/%s: %v", key, field, err)
			stale = append(stale, field)
			continue
		}
		if conn.Expired(now) {
			stale = append(stale, field)
			continue
		}
		conns = append(conns, conn)
	}

	if len(stale) > 0 {
		if err := r.store.HDel(ctx, key, stale...); err != nil {
			log.Printf("[connections] failed to prune %d stale entries from %s: %v", len(stale), key, err)
		}
	}

	return conns, nil
}
