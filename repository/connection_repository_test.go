package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/kvstore"
)

func newTestConn(id, userID, workspaceID, channelID string, ttl time.Duration) *models.Connection {
	return &models.Connection{
		ID:          id,
		WorkspaceID: workspaceID,
		UserID:      userID,
		ChannelID:   channelID,
		Status:      models.StatusOnline,
		TimeZone:    "Europe/Istanbul",
		ExpiredAt:   time.Now().Add(ttl),
	}
}

func TestConnectionRepo_SaveAndGet(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	conn := newTestConn("c1", "u1", "w1", "", time.Minute)
	if err := repo.Save(ctx, conn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "u1" || got.WorkspaceID != "w1" || got.Status != models.StatusOnline {
		t.Errorf("unexpected connection: %+v", got)
	}
}

func TestConnectionRepo_GetMissing(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestConnectionRepo_SaveRefusesExpired(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())

	conn := newTestConn("c1", "u1", "w1", "", -time.Second)
	if err := repo.Save(context.Background(), conn); err == nil {
		t.Error("expected error when saving an already expired connection")
	}
}

func TestConnectionRepo_FanOutIndexes(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	conn := newTestConn("c1", "u1", "w1", "ch1", time.Minute)
	if err := repo.Save(ctx, conn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	byUser, err := repo.GetUserConnections(ctx, "u1", "")
	if err != nil || len(byUser) != 1 {
		t.Fatalf("user index: got %d conns, err %v", len(byUser), err)
	}
	byWorkspace, err := repo.GetWorkspaceConnections(ctx, "w1")
	if err != nil || len(byWorkspace) != 1 {
		t.Fatalf("workspace index: got %d conns, err %v", len(byWorkspace), err)
	}
	byChannel, err := repo.GetChannelConnections(ctx, "ch1")
	if err != nil || len(byChannel) != 1 {
		t.Fatalf("channel index: got %d conns, err %v", len(byChannel), err)
	}
}

func TestConnectionRepo_Delete(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	conn := newTestConn("c1", "u1", "w1", "ch1", time.Minute)
	if err := repo.Save(ctx, conn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Delete(ctx, conn); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repo.Get(ctx, "c1"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("expected ErrConnectionNotFound after delete, got %v", err)
	}
	byUser, _ := repo.GetUserConnections(ctx, "u1", "")
	if len(byUser) != 0 {
		t.Errorf("user index should be empty after delete, got %d", len(byUser))
	}
	byChannel, _ := repo.GetChannelConnections(ctx, "ch1")
	if len(byChannel) != 0 {
		t.Errorf("channel index should be empty after delete, got %d", len(byChannel))
	}
}

func TestConnectionRepo_RemoveFromChannel(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	conn := newTestConn("c1", "u1", "w1", "ch1", time.Minute)
	if err := repo.Save(ctx, conn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.RemoveFromChannel(ctx, "ch1", "c1"); err != nil {
		t.Fatalf("RemoveFromChannel failed: %v", err)
	}

	byChannel, _ := repo.GetChannelConnections(ctx, "ch1")
	if len(byChannel) != 0 {
		t.Errorf("channel index should be empty, got %d", len(byChannel))
	}

	// kayıt kendisi yaşamaya devam etmeli
	if _, err := repo.Get(ctx, "c1"); err != nil {
		t.Errorf("connection record should survive channel removal: %v", err)
	}
}

func TestConnectionRepo_UserConnectionsWorkspaceFilter(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	if err := repo.Save(ctx, newTestConn("c1", "u1", "w1", "", time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Save(ctx, newTestConn("c2", "u1", "w2", "", time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	all, err := repo.GetUserConnections(ctx, "u1", "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 connections, got %d, err %v", len(all), err)
	}

	w2Only, err := repo.GetUserConnections(ctx, "u1", "w2")
	if err != nil || len(w2Only) != 1 || w2Only[0].ID != "c2" {
		t.Fatalf("workspace filter failed: %+v, err %v", w2Only, err)
	}
}

func TestConnectionRepo_LazyExpiryPrunesIndex(t *testing.T) {
	store := kvstore.NewMemory()
	repo := NewKVConnectionRepo(store)
	ctx := context.Background()

	if err := repo.Save(ctx, newTestConn("c1", "u1", "w1", "ch1", 20*time.Millisecond)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	byChannel, err := repo.GetChannelConnections(ctx, "ch1")
	if err != nil {
		t.Fatalf("GetChannelConnections failed: %v", err)
	}
	if len(byChannel) != 0 {
		t.Fatalf("expired connection leaked into read: %+v", byChannel)
	}

	// bayat entry index hash'inden de süpürülmüş olmalı
	fields, err := store.HGetAll(ctx, ChannelConnectionsKey("ch1"))
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("stale index entry was not pruned: %v", fields)
	}
}

func TestConnectionRepo_CountAndMembership(t *testing.T) {
	repo := NewKVConnectionRepo(kvstore.NewMemory())
	ctx := context.Background()

	if err := repo.Save(ctx, newTestConn("c1", "u1", "w1", "ch1", time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Save(ctx, newTestConn("c2", "u2", "w1", "ch1", time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	n, err := repo.CountChannelConnections(ctx, "ch1")
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d, err %v", n, err)
	}

	in, err := repo.IsUserInChannel(ctx, "u1", "ch1")
	if err != nil || !in {
		t.Errorf("u1 should be in ch1: in=%v err=%v", in, err)
	}
	in, err = repo.IsUserInChannel(ctx, "u3", "ch1")
	if err != nil || in {
		t.Errorf("u3 should not be in ch1: in=%v err=%v", in, err)
	}
}
