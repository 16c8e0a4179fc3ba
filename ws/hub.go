package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akinalp/oda/models"
)

// EventPublisher, service katmanının WebSocket event'leri yayınlamak için
// kullandığı interface.
//
// Dependency Inversion: Service'ler Hub'ın concrete struct'ına değil,
// bu interface'e bağımlıdır. Testlerde fake publisher geçilir.
//
// Scope'lar:
//   - PublishToUser: kullanıcının TÜM cihazları (tüm bağlantıları)
//   - PublishToWorkspace: workspace'te canlı bağlantısı olan herkes
//   - PublishToChannel / Except: kanalı seçmiş bağlantılar
type EventPublisher interface {
	PublishToUser(userID string, event Event)
	PublishToWorkspace(workspaceID string, event Event)
	PublishToChannel(channelID string, event Event)
	PublishToChannelExcept(channelID, excludeConnectionID string, event Event)
}

// ConnectionSource, Hub'ın workspace/kanal scope'larını bağlantı id'lerine
// çözmek için kullandığı minimal interface.
// repository.ConnectionRepository bu interface'i duck typing ile karşılar.
type ConnectionSource interface {
	GetWorkspaceConnections(ctx context.Context, workspaceID string) ([]models.Connection, error)
	GetChannelConnections(ctx context.Context, channelID string) ([]models.Connection, error)
}

// lookupTimeout, scope çözümleme sırasındaki store okuması için üst sınır.
// Event dağıtımı best-effort — store yavaşsa event düşer, state bozulmaz.
const lookupTimeout = 2 * time.Second

// Hub, bu process'e bağlı tüm WebSocket client'larını yöneten merkezi yapı.
//
// Önemli ayrım: Hub SADECE bu process'in socket'lerini bilir. Hangi
// bağlantının hangi workspace/kanalda olduğu gerçeği paylaşımlı store'dadır
// (ConnectionSource) — scope'lu publish önce store'dan bağlantı id'lerini
// çözer, sonra lokal socket'lere iletir. Başka instance'lara bağlı
// client'lara o instance'ların hub'ları iletir.
type Hub struct {
	// clients: connectionID → Client. Her socket tek bir Connection
	// kaydına karşılık gelir, bu yüzden anahtar connection id'dir.
	clients map[string]*Client

	// byUser: userID → Client set (bir kullanıcının birden fazla cihazı olabilir).
	// map[*Client]bool — Go'da set yoktur, map[*Client]bool kullanılır.
	byUser map[string]map[*Client]bool

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client

	// seq: her outbound event'e verilen artan sayaç.
	// atomic.Int64 — birden fazla goroutine güvenle artırabilir.
	seq atomic.Int64

	source ConnectionSource

	// Callback'ler — main.go'da service'lere bağlanır (Dependency Inversion).
	// ws paketi services'i import edemez (services ws'i import ediyor),
	// bu yüzden akış tersine callback'lerle kurulur.
	onDisconnect func(connectionID string)
	onKeepAlive  func(connectionID string) (*models.Connection, error)
	onResume     func(userID, oldConnectionID, newConnectionID string) (*models.Connection, error)
}

// NewHub, yeni bir Hub oluşturur.
func NewHub(source ConnectionSource) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		byUser:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		source:     source,
	}
}

// OnDisconnect, socket kapandığında çağrılacak callback'i set eder.
func (h *Hub) OnDisconnect(fn func(connectionID string)) { h.onDisconnect = fn }

// OnKeepAlive, heartbeat geldiğinde çağrılacak callback'i set eder.
func (h *Hub) OnKeepAlive(fn func(connectionID string) (*models.Connection, error)) {
	h.onKeepAlive = fn
}

// OnResume, client eski connection id'sini devralmak istediğinde çağrılır.
// userID, devralmayı isteyen socket'in doğrulanmış kimliğidir — callback
// eski kaydın gerçekten bu kullanıcıya ait olduğunu doğrulamalıdır.
func (h *Hub) OnResume(fn func(userID, oldConnectionID, newConnectionID string) (*models.Connection, error)) {
	h.onResume = fn
}

// Run, Hub'ın ana event loop'u. main.go'da `go hub.Run()` ile başlatılır.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.connectionID] = client
	if _, ok := h.byUser[client.userID]; !ok {
		h.byUser[client.userID] = make(map[*Client]bool)
	}
	h.byUser[client.userID][client] = true

	log.Printf("[ws] client connected: conn=%s user=%s (devices: %d)",
		client.connectionID, client.userID, len(h.byUser[client.userID]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()

	if existing, ok := h.clients[client.connectionID]; !ok || existing != client {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client.connectionID)
	if set, ok := h.byUser[client.userID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byUser, client.userID)
		}
	}
	close(client.send)
	h.mu.Unlock()

	log.Printf("[ws] client disconnected: conn=%s user=%s", client.connectionID, client.userID)

	// Mutex dışında — disconnect akışı lock alır ve store'a gider.
	if h.onDisconnect != nil {
		go h.onDisconnect(client.connectionID)
	}
}

// PublishToUser, kullanıcının bu instance'a bağlı tüm cihazlarına event gönderir.
func (h *Hub) PublishToUser(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.byUser[userID] {
		h.deliver(client, data)
	}
}

// PublishToWorkspace, workspace'te canlı bağlantısı olan ve bu instance'a
// bağlı tüm client'lara event gönderir.
func (h *Hub) PublishToWorkspace(workspaceID string, event Event) {
	conns, err := h.resolve(func(ctx context.Context) ([]models.Connection, error) {
		return h.source.GetWorkspaceConnections(ctx, workspaceID)
	})
	if err != nil {
		log.Printf("[ws] failed to resolve workspace scope %s: %v", workspaceID, err)
		return
	}
	h.publishToConnections(conns, "", event)
}

// PublishToChannel, kanalı seçmiş tüm bağlantılara event gönderir.
func (h *Hub) PublishToChannel(channelID string, event Event) {
	h.PublishToChannelExcept(channelID, "", event)
}

// PublishToChannelExcept, kanalı seçmiş bağlantılara event gönderir —
// excludeConnectionID hariç (kendi aksiyonunun echo'su gitmesin diye).
func (h *Hub) PublishToChannelExcept(channelID, excludeConnectionID string, event Event) {
	conns, err := h.resolve(func(ctx context.Context) ([]models.Connection, error) {
		return h.source.GetChannelConnections(ctx, channelID)
	})
	if err != nil {
		log.Printf("[ws] failed to resolve channel scope %s: %v", channelID, err)
		return
	}
	h.publishToConnections(conns, excludeConnectionID, event)
}

func (h *Hub) resolve(fn func(ctx context.Context) ([]models.Connection, error)) ([]models.Connection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	return fn(ctx)
}

func (h *Hub) publishToConnections(conns []models.Connection, excludeConnectionID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range conns {
		if conn.ID == excludeConnectionID {
			continue
		}
		if client, ok := h.clients[conn.ID]; ok {
			h.deliver(client, data)
		}
	}
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event %s: %v", event.Op, err)
		return nil, false
	}
	return data, true
}

// deliver, encode edilmiş event'i tek bir client'ın buffer'ına yazar.
// Çağıran h.mu'yu tutuyor olmalı.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Buffer dolu — bu client yavaş, kapat
		go func(c *Client) { h.unregister <- c }(client)
	}
}

// Shutdown, tüm client bağlantılarını kapatır (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.byUser = make(map[string]map[*Client]bool)
	log.Println("[ws] hub shut down, all connections closed")
}
