package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/kvstore"
	"github.com/akinalp/oda/pkg/lock"
	"github.com/akinalp/oda/repository"
	"github.com/akinalp/oda/sfu"
	"github.com/akinalp/oda/ws"
)

// fakePublisher, yayınlanan event'leri kaydeder — socket yok.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	scope  string // "user", "workspace", "channel"
	target string
	event  ws.Event
}

func (p *fakePublisher) PublishToUser(userID string, event ws.Event) {
	p.record("user", userID, event)
}
func (p *fakePublisher) PublishToWorkspace(workspaceID string, event ws.Event) {
	p.record("workspace", workspaceID, event)
}
func (p *fakePublisher) PublishToChannel(channelID string, event ws.Event) {
	p.record("channel", channelID, event)
}
func (p *fakePublisher) PublishToChannelExcept(channelID, _ string, event ws.Event) {
	p.record("channel", channelID, event)
}

func (p *fakePublisher) record(scope, target string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{scope: scope, target: target, event: event})
}

// countOp, verilen op'tan kaç event yayınlandığını döner.
func (p *fakePublisher) countOp(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event.Op == op {
			n++
		}
	}
	return n
}

// lastStatus, son online_status_update payload'ını döner.
func (p *fakePublisher) lastStatus() (ws.OnlineStatusData, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].event.Op == ws.OpOnlineStatusUpdate {
			return p.events[i].event.Data.(ws.OnlineStatusData), true
		}
	}
	return ws.OnlineStatusData{}, false
}

// fakeUsers, in-memory UserStatusStore.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (f *fakeUsers) add(id string, status models.OnlineStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &models.User{ID: id, Username: "user-" + id, Status: status}
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id string, status models.OnlineStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return pkg.ErrNotFound
	}
	u.Status = status
	return nil
}

func (f *fakeUsers) status(id string) models.OnlineStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Status
}

// fakeWorkspaces, sabit üyelik listesi döner.
type fakeWorkspaces struct {
	byUser map[string][]models.Workspace
}

func (f *fakeWorkspaces) GetWorkspacesForUser(_ context.Context, userID string) ([]models.Workspace, error) {
	return f.byUser[userID], nil
}

// fakeChannels, in-memory ChannelGetter.
type fakeChannels struct {
	channels map[string]*models.Channel
}

func (f *fakeChannels) GetByID(_ context.Context, id string) (*models.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return ch, nil
}

// fakeSFU, tahsisleri sayar — her tahsis yeni oda kimliği üretir.
type fakeSFU struct {
	mu          sync.Mutex
	allocations int
}

func (f *fakeSFU) AllocateRoom(_ context.Context, channelID string) (*sfu.RoomAllocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allocations++
	roomID := fmt.Sprintf("room-%s-%d", channelID, f.allocations)
	return &sfu.RoomAllocation{
		AudioRoomID:     roomID,
		VideoRoomID:     roomID,
		ServerURL:       "http://sfu.test",
		WSServerURL:     "ws://sfu.test",
		ServerAuthToken: "server-token",
	}, nil
}

func (f *fakeSFU) IssueChannelToken(_ context.Context, roomID, userID string) (string, error) {
	return "token-" + roomID + "-" + userID, nil
}

func (f *fakeSFU) allocationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocations
}

// testStack, service testlerinin tam kablolaması: gerçek repo + gerçek
// lock + gerçek room broker, fake kenarlar (kullanıcı, workspace, SFU, hub).
type testStack struct {
	store      kvstore.Store
	conns      repository.ConnectionRepository
	users      *fakeUsers
	workspaces *fakeWorkspaces
	channels   *fakeChannels
	sfu        *fakeSFU
	hub        *fakePublisher
	locker     lock.Locker
	rooms      RoomService
	selection  SelectionService
	connection ConnectionService
}

func newTestStack() *testStack {
	store := kvstore.NewMemory()
	conns := repository.NewKVConnectionRepo(store)
	users := newFakeUsers()
	workspaces := &fakeWorkspaces{byUser: map[string][]models.Workspace{}}
	channels := &fakeChannels{channels: map[string]*models.Channel{}}
	fakeSFU := &fakeSFU{}
	hub := &fakePublisher{}
	locker := lock.NewMemoryLocker(lock.Options{
		TTL:        time.Second,
		Retries:    3,
		RetryDelay: 5 * time.Millisecond,
	})

	rooms := NewRoomService(store, fakeSFU)
	selection := NewSelectionService(conns, channels, rooms, store, locker, hub)
	connection := NewConnectionService(conns, users, workspaces, locker, selection, hub, time.Minute)

	return &testStack{
		store:      store,
		conns:      conns,
		users:      users,
		workspaces: workspaces,
		channels:   channels,
		sfu:        fakeSFU,
		hub:        hub,
		locker:     locker,
		rooms:      rooms,
		selection:  selection,
		connection: connection,
	}
}

func (s *testStack) connect(t interface{ Fatalf(string, ...any) }, connID, userID, workspaceID string, status models.OnlineStatus) *models.Connection {
	conn, err := s.connection.Connect(context.Background(), &models.ConnectRequest{
		ConnectionID: connID,
		WorkspaceID:  workspaceID,
		UserID:       userID,
		Status:       status,
	})
	if err != nil {
		t.Fatalf("Connect(%s) failed: %v", connID, err)
	}
	return conn
}
