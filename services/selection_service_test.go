package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/ws"
)

func selectStack(t *testing.T) *testStack {
	t.Helper()
	s := newTestStack()
	s.users.add("u1", models.StatusOffline)
	s.users.add("u2", models.StatusOffline)
	s.channels.channels["ch1"] = &models.Channel{ID: "ch1", WorkspaceID: "w1"}
	s.channels.channels["ch2"] = &models.Channel{ID: "ch2", WorkspaceID: "w1"}
	return s
}

func TestSelect_ReturnsRoomCredentials(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	creds, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{Microphone: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if creds.AudioRoomID == "" || creds.ChannelAuthToken == "" || creds.ServerAuthToken == "" {
		t.Errorf("incomplete credentials: %+v", creds)
	}

	conn, err := s.connection.GetConnection(context.Background(), "c1")
	if err != nil || conn.ChannelID != "ch1" || !conn.Media.Microphone {
		t.Errorf("selection not persisted: %+v, err %v", conn, err)
	}
	if n := s.hub.countOp(ws.OpChannelSelect); n != 1 {
		t.Errorf("expected one channel_select event, got %d", n)
	}
}

func TestSelect_UnknownChannel(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	_, err := s.selection.Select(context.Background(), "nope", "u1", "c1", models.MediaState{})
	if !errors.Is(err, pkg.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestSelect_SecondChannelRejected(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	_, err := s.selection.Select(context.Background(), "ch2", "u1", "c1", models.MediaState{})
	if !errors.Is(err, pkg.ErrChannelAlreadySelected) {
		t.Errorf("expected ErrChannelAlreadySelected, got %v", err)
	}

	// İlk seçim bozulmamış olmalı.
	conn, _ := s.connection.GetConnection(context.Background(), "c1")
	if conn.ChannelID != "ch1" {
		t.Errorf("original selection should survive, got %q", conn.ChannelID)
	}
}

// Aynı kanalın yeniden seçimi hata değildir — media yenilemesi gibi
// davranır ve mevcut oda yeniden kullanılır.
func TestSelect_SameChannelIsRefresh(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	first, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{})
	if err != nil {
		t.Fatalf("first Select failed: %v", err)
	}
	second, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{Camera: true})
	if err != nil {
		t.Fatalf("re-select of the same channel should succeed: %v", err)
	}

	if first.AudioRoomID != second.AudioRoomID {
		t.Errorf("room must be reused: %s vs %s", first.AudioRoomID, second.AudioRoomID)
	}
	if s.sfu.allocationCount() != 1 {
		t.Errorf("expected a single allocation, got %d", s.sfu.allocationCount())
	}
	if n := s.hub.countOp(ws.OpChannelSelect); n != 1 {
		t.Errorf("re-select must not announce a second join, got %d select events", n)
	}
}

func TestSelect_SecondParticipantReusesRoom(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)
	s.connect(t, "c2", "u2", "w1", models.StatusOnline)

	first, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	second, err := s.selection.Select(context.Background(), "ch1", "u2", "c2", models.MediaState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if first.AudioRoomID != second.AudioRoomID {
		t.Errorf("participants should share the room: %s vs %s", first.AudioRoomID, second.AudioRoomID)
	}
	if first.ChannelAuthToken == second.ChannelAuthToken {
		t.Error("each participant must get their own join token")
	}
}

func TestSelect_ForeignConnectionRejected(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	// u2, u1'in connection id'siyle kanal seçemez.
	_, err := s.selection.Select(context.Background(), "ch1", "u2", "c1", models.MediaState{})
	if !errors.Is(err, pkg.ErrConnectionNotFound) {
		t.Errorf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestUnselect_Lifecycle(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)
	s.connect(t, "c2", "u2", "w1", models.StatusOnline)

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, err := s.selection.Select(context.Background(), "ch1", "u2", "c2", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// İlk ayrılan odayı düşürmez — kanalda hâlâ biri var.
	if err := s.selection.Unselect(context.Background(), "ch1", "u1", "c1"); err != nil {
		t.Fatalf("Unselect failed: %v", err)
	}
	if raw, _ := s.store.Get(context.Background(), RoomCacheKey("ch1")); raw == "" {
		t.Error("room cache must survive while the channel is occupied")
	}

	// Son ayrılan odayı düşürür.
	if err := s.selection.Unselect(context.Background(), "ch1", "u2", "c2"); err != nil {
		t.Fatalf("Unselect failed: %v", err)
	}
	if raw, _ := s.store.Get(context.Background(), RoomCacheKey("ch1")); raw != "" {
		t.Error("room cache should be gone after the channel empties")
	}

	// Teardown sonrası yeni seçim TAZE oda alır.
	fresh, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{})
	if err != nil {
		t.Fatalf("re-select failed: %v", err)
	}
	if s.sfu.allocationCount() != 2 {
		t.Errorf("expected a fresh allocation after teardown, got %d", s.sfu.allocationCount())
	}
	if fresh.AudioRoomID == "" {
		t.Error("fresh credentials missing room id")
	}
}

func TestUnselect_NotSelected(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	err := s.selection.Unselect(context.Background(), "ch1", "u1", "c1")
	if !errors.Is(err, pkg.ErrChannelNotSelected) {
		t.Errorf("expected ErrChannelNotSelected, got %v", err)
	}
}

func TestUnselect_WrongChannel(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	err := s.selection.Unselect(context.Background(), "ch2", "u1", "c1")
	if !errors.Is(err, pkg.ErrChannelSelectedElsewhere) {
		t.Errorf("expected ErrChannelSelectedElsewhere, got %v", err)
	}
}

func TestUnselect_BlockedByActiveConversation(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Çağrı yönetimi görüşme işaretini dışarıdan yazar.
	if err := s.store.Set(context.Background(), ConversationKey("ch1"), "1", 0); err != nil {
		t.Fatalf("failed to set conversation marker: %v", err)
	}

	err := s.selection.Unselect(context.Background(), "ch1", "u1", "c1")
	if !errors.Is(err, pkg.ErrActiveConversation) {
		t.Errorf("expected ErrActiveConversation, got %v", err)
	}

	// İşaret kalkınca ayrılmak serbest.
	if err := s.store.Delete(context.Background(), ConversationKey("ch1")); err != nil {
		t.Fatalf("failed to clear conversation marker: %v", err)
	}
	if err := s.selection.Unselect(context.Background(), "ch1", "u1", "c1"); err != nil {
		t.Errorf("Unselect should succeed once the conversation ends: %v", err)
	}
}

// Socket ölmüşse görüşme işareti bağlantıyı kanalda tutamaz.
func TestLeaveOnDisconnect_IgnoresConversationMarker(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := s.store.Set(context.Background(), ConversationKey("ch1"), "1", 0); err != nil {
		t.Fatalf("failed to set conversation marker: %v", err)
	}

	if err := s.connection.Disconnect(context.Background(), "c1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	conns, _ := s.connection.GetChannelConnections(context.Background(), "ch1")
	if len(conns) != 0 {
		t.Errorf("dead connection must not linger in the channel: %+v", conns)
	}
}

func TestUpdateMediaState(t *testing.T) {
	s := selectStack(t)
	s.connect(t, "c1", "u1", "w1", models.StatusOnline)

	// Kanal seçili değilken media güncellenemez.
	err := s.selection.UpdateMediaState(context.Background(), "u1", "c1", models.MediaState{Speaking: true})
	if !errors.Is(err, pkg.ErrChannelNotSelected) {
		t.Fatalf("expected ErrChannelNotSelected, got %v", err)
	}

	if _, err := s.selection.Select(context.Background(), "ch1", "u1", "c1", models.MediaState{}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := s.selection.UpdateMediaState(context.Background(), "u1", "c1", models.MediaState{Speaking: true, Camera: true}); err != nil {
		t.Fatalf("UpdateMediaState failed: %v", err)
	}

	conn, _ := s.connection.GetConnection(context.Background(), "c1")
	if !conn.Media.Speaking || !conn.Media.Camera {
		t.Errorf("media state not persisted: %+v", conn.Media)
	}
	if n := s.hub.countOp(ws.OpMediaStateUpdate); n != 1 {
		t.Errorf("expected one media_state_update event, got %d", n)
	}
}
