package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/lock"
	"github.com/akinalp/oda/ws"
)

func TestConnect_PromotesStatusAndNotifies(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.workspaces.byUser["u1"] = []models.Workspace{{ID: "w1"}}

	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if got := s.users.status("u1"); got != models.StatusOnline {
		t.Errorf("expected user promoted to online, got %s", got)
	}
	status, ok := s.hub.lastStatus()
	if !ok || status.Status != models.StatusOnline || status.UserID != "u1" {
		t.Errorf("expected online_status_update event, got %+v (ok=%v)", status, ok)
	}
}

func TestConnect_ManualIdleIsSticky(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusIdle)

	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if got := s.users.status("u1"); got != models.StatusIdle {
		t.Errorf("idle is user-chosen and must survive a connect, got %s", got)
	}
	if n := s.hub.countOp(ws.OpOnlineStatusUpdate); n != 0 {
		t.Errorf("no status event expected, got %d", n)
	}
}

func TestConnect_DefaultsInvalidStatusToOnline(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)

	conn := s.connect(t, "c1", "u1", "w1", "bogus")

	if conn.Status != models.StatusOnline {
		t.Errorf("invalid requested status should default to online, got %s", conn.Status)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	s := newTestStack()

	if err := s.connection.Disconnect(context.Background(), "ghost"); err != nil {
		t.Errorf("disconnecting an unknown connection must be a no-op, got %v", err)
	}
}

func TestDisconnect_LastDeviceGoesOffline(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if err := s.connection.Disconnect(context.Background(), "c1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	if got := s.users.status("u1"); got != models.StatusOffline {
		t.Errorf("expected offline after last device left, got %s", got)
	}
	if _, err := s.connection.GetConnection(context.Background(), "c1"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("connection record should be gone, got %v", err)
	}
}

// Senaryo: telefon uykuda, laptop aktif. Laptop kapanınca kullanıcı
// online'dan sleep'e düşer — offline'a değil.
func TestDisconnect_RemainingSleepDeviceAggregatesToSleep(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.workspaces.byUser["u1"] = []models.Workspace{{ID: "w1"}}

	s.connect(t, "laptop", "u1", "w1", models.StatusOnline)
	s.connect(t, "phone", "u1", "w1", models.StatusSleep)

	// Telefonun sleep bağlanması status'u DÜŞÜRMEZ — laptop hâlâ aktif.
	if got := s.users.status("u1"); got != models.StatusOnline {
		t.Fatalf("user should stay online while laptop is active, got %s", got)
	}

	if err := s.connection.Disconnect(context.Background(), "laptop"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	if got := s.users.status("u1"); got != models.StatusSleep {
		t.Errorf("expected sleep with only the sleeping phone left, got %s", got)
	}
	status, ok := s.hub.lastStatus()
	if !ok || status.Status != models.StatusSleep {
		t.Errorf("expected a sleep status event, got %+v (ok=%v)", status, ok)
	}
}

func TestDisconnect_LeavesSelectedChannel(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.channels.channels["ch1"] = &models.Channel{ID: "ch1", WorkspaceID: "w1"}

	s.connect(t, "c1", "u1", "w1", models.StatusOnline)
	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if err := s.connection.Disconnect(context.Background(), "c1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	conns, err := s.connection.GetChannelConnections(context.Background(), "ch1")
	if err != nil || len(conns) != 0 {
		t.Errorf("channel should be empty after disconnect: %d conns, err %v", len(conns), err)
	}
	// Kanal boşaldı — oda cache'i de düşmüş olmalı.
	if raw, _ := s.store.Get(context.Background(), RoomCacheKey("ch1")); raw != "" {
		t.Error("room cache should be torn down when the channel empties")
	}
}

func TestKeepAlive_ExtendsLifespan(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)

	before := s.connect(t, "c1", "u1", "w1", models.StatusOnline)
	time.Sleep(10 * time.Millisecond)

	after, err := s.connection.KeepAlive(context.Background(), "c1")
	if err != nil {
		t.Fatalf("KeepAlive failed: %v", err)
	}
	if !after.ExpiredAt.After(before.ExpiredAt) {
		t.Errorf("lifespan should move forward: %v -> %v", before.ExpiredAt, after.ExpiredAt)
	}
}

func TestKeepAlive_DeadConnection(t *testing.T) {
	s := newTestStack()

	_, err := s.connection.KeepAlive(context.Background(), "ghost")
	if !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestRename_PreservesChannelSelection(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.channels.channels["ch1"] = &models.Channel{ID: "ch1", WorkspaceID: "w1"}

	s.connect(t, "old", "u1", "w1", models.StatusOnline)
	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "old", models.MediaState{Microphone: true}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	moved, err := s.connection.Rename(context.Background(), "u1", "old", "new")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if moved.ID != "new" || moved.ChannelID != "ch1" || !moved.Media.Microphone {
		t.Errorf("channel selection and media should carry over: %+v", moved)
	}

	if _, err := s.connection.GetConnection(context.Background(), "old"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("old record should be gone, got %v", err)
	}
	conns, _ := s.connection.GetChannelConnections(context.Background(), "ch1")
	if len(conns) != 1 || conns[0].ID != "new" {
		t.Errorf("channel index should point at the new id: %+v", conns)
	}
}

func TestRename_ForeignConnectionRejected(t *testing.T) {
	s := newTestStack()
	s.users.add("alice", models.StatusOffline)
	s.users.add("mallory", models.StatusOffline)
	s.channels.channels["ch1"] = &models.Channel{ID: "ch1", WorkspaceID: "w1"}

	// Alice'in bağlantısı ve kanal seçimi — id'si kanal sorgularından
	// diğer üyelere görünür, tek başına sahiplik kanıtı değildir.
	s.connect(t, "a1", "alice", "w1", models.StatusOnline)
	if _, err := s.selection.Select(context.Background(), "ch1", "alice", "a1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	s.connect(t, "m1", "mallory", "w1", models.StatusOnline)

	if _, err := s.connection.Rename(context.Background(), "mallory", "a1", "m2"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Fatalf("renaming someone else's connection must fail with ErrConnectionNotFound, got %v", err)
	}

	// Alice'in kaydı ve kanal üyeliği yerinde kalmalı.
	conn, err := s.connection.GetConnection(context.Background(), "a1")
	if err != nil {
		t.Fatalf("alice's record should survive the attempt: %v", err)
	}
	if conn.UserID != "alice" || conn.ChannelID != "ch1" {
		t.Errorf("alice's record corrupted: %+v", conn)
	}
	if _, err := s.connection.GetConnection(context.Background(), "m2"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("no record may appear under the attacker's new id, got %v", err)
	}
}

func TestSetStatus_ManualIdle(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOnline)
	s.workspaces.byUser["u1"] = []models.Workspace{{ID: "w1"}}

	if err := s.connection.SetStatus(context.Background(), "u1", models.StatusIdle); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if got := s.users.status("u1"); got != models.StatusIdle {
		t.Errorf("expected idle, got %s", got)
	}

	// Idle seçiliyken yeni bir cihaz bağlanması onu ezmemeli.
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)
	if got := s.users.status("u1"); got != models.StatusIdle {
		t.Errorf("idle must survive a new connection, got %s", got)
	}
}

// Lock alınamazsa mutation fail-closed reddedilir — kilitsiz yol yok.
func TestConnect_FailsClosedOnLockTimeout(t *testing.T) {
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)

	handle, err := s.locker.Acquire(context.Background(), lock.UserKey("u1"))
	if err != nil {
		t.Fatalf("setup acquire failed: %v", err)
	}
	defer handle.Release(context.Background())

	_, err = s.connection.Connect(context.Background(), &models.ConnectRequest{
		ConnectionID: "c1", WorkspaceID: "w1", UserID: "u1", Status: models.StatusOnline,
	})
	if !errors.Is(err, pkg.ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}

	// Hiçbir state yazılmamış olmalı.
	if _, err := s.connection.GetConnection(context.Background(), "c1"); !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("no record should exist after a rejected mutation, got %v", err)
	}
}
