package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// readWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// Connection lifespan'ından bağımsız bir socket-seviyesi guard'dır —
	// store'daki kayıt TTL ile zaten ölür, bu sadece ölü socket'i kapatır.
	readWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	maxMessageSize = 4096

	// sendBufferSize: Her client'ın send channel'ının buffer boyutu.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her socket, store'daki bir Connection kaydına bire bir karşılık gelir —
// connectionID handshake'te üretilir ve kayıt bu id ile yazılır.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: Client'dan gelen mesajları okur (heartbeat, resume)
// - WritePump: Hub'dan gelen event'leri client'a yazar
// gorilla/websocket aynı anda tek okuma + tek yazma destekler;
// iki ayrı goroutine ile okuma ve yazma birbirini bloklamaz.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	connectionID string
	userID       string

	// send, client'a gönderilecek mesajların buffer'landığı channel.
	// Hub `client.send <- data` yazar, WritePump okuyup socket'e iletir.
	send chan []byte
	mu   sync.Mutex // conn.WriteMessage çağrılarını korur
}

// ReadPump, WebSocket bağlantısından gelen mesajları okur ve işler.
// Bağlantı kapanana kadar döngüde kalır; kapandığında Hub'dan çıkar —
// Hub da disconnect callback'i ile store temizliğini tetikler.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for conn %s: %v", c.connectionID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for conn %s: %v", c.connectionID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from conn %s: %v", c.connectionID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		c.handleHeartbeat()

	case OpResume:
		c.handleResume(event)

	default:
		log.Printf("[ws] unknown op from conn %s: %s", c.connectionID, event.Op)
	}
}

// handleHeartbeat, heartbeat'i işler: socket deadline'ını yeniler ve
// store'daki Connection kaydının lifespan'ını uzatır.
//
// Kayıt TTL ile ölmüşse (örn. uzun bir ağ kopması sonrası) client'a
// session_expired gönderilir — client yeniden bağlanmalıdır; eski
// kayıt sessizce diriltilmez.
func (c *Client) handleHeartbeat() {
	if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for conn %s: %v", c.connectionID, err)
		return
	}

	if c.hub.onKeepAlive == nil {
		c.sendEvent(Event{Op: OpHeartbeatAck})
		return
	}

	conn, err := c.hub.onKeepAlive(c.connectionID)
	if err != nil {
		log.Printf("[ws] keepalive failed for conn %s: %v", c.connectionID, err)
		c.sendEvent(Event{Op: OpSessionExpired})
		return
	}

	c.sendEvent(Event{
		Op:   OpHeartbeatAck,
		Data: HeartbeatAckData{ExpiredAt: conn.ExpiredAt.Unix()},
	})
}

// handleResume, resume event'ini işler: client kopmadan önceki connection
// id'sini gönderir, kanal seçimi yeni bağlantıya taşınır.
//
// Socket'in doğrulanmış userID'si callback'e geçilir — eski kayıt başka
// bir kullanıcıya aitse resume reddedilir. Connection id bilmek yetmez,
// id'ler kanal sorgularında diğer üyelere görünür.
func (c *Client) handleResume(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data ResumeData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}

	if data.ConnectionID == "" || c.hub.onResume == nil {
		return
	}

	conn, err := c.hub.onResume(c.userID, data.ConnectionID, c.connectionID)
	if err != nil {
		// Eski kayıt çoktan ölmüş olabilir — bu bir hata değil, client
		// mevcut taze bağlantıyla devam eder.
		log.Printf("[ws] resume of %s onto %s failed: %v", data.ConnectionID, c.connectionID, err)
		c.sendEvent(Event{Op: OpSessionExpired, Data: ResumeData{ConnectionID: data.ConnectionID}})
		return
	}

	c.sendEvent(Event{Op: OpReady, Data: conn})
}

// sendEvent, client'a tek bir event gönderir.
func (c *Client) sendEvent(event Event) {
	event.Seq = c.hub.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event for conn %s: %v", c.connectionID, err)
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer dolu — client muhtemelen donmuş, bağlantıyı kapat
		log.Printf("[ws] send buffer full for conn %s, dropping connection", c.connectionID)
		c.hub.unregister <- c
	}
}

// WritePump, Hub'dan gelen mesajları WebSocket bağlantısına yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel kapatıldı — Hub client'ı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar. gorilla/websocket conn'a aynı
// anda birden fazla yazma yasak — mutex ile korunur.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
