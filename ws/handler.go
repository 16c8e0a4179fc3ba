package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/oda/models"
)

// TokenValidator, WebSocket handler'ın JWT doğrulaması için kullandığı interface.
//
// Neden services.AuthService yerine kendi interface'imizi tanımlıyoruz?
// Circular dependency'yi önlemek için:
// - services paketi ws.EventPublisher'ı kullanıyor (event yayını için)
// - ws paketi services'i import etseydi → ws → services → ws döngüsü oluşurdu
//
// Interface Segregation Principle: handler'ın sadece ValidateAccessToken'a
// ihtiyacı var — main.go'da authService bu interface'i implicit karşılar.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// ConnectionGateway, handshake ve socket lifecycle'ının bağlandığı
// minimal interface. services.ConnectionService bunu karşılar.
type ConnectionGateway interface {
	Connect(ctx context.Context, req *models.ConnectRequest) (*models.Connection, error)
	Disconnect(ctx context.Context, connectionID string) error
}

// MembershipChecker, kullanıcının workspace üyeliğini doğrular.
type MembershipChecker interface {
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
}

// upgrader, HTTP bağlantısını WebSocket bağlantısına yükseltir.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin: Production'da domain kontrolü yapılmalı.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	gateway        ConnectionGateway
	membership     MembershipChecker
}

// NewHandler, yeni bir WebSocket handler oluşturur.
func NewHandler(hub *Hub, tokenValidator TokenValidator, gateway ConnectionGateway, membership MembershipChecker) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		gateway:        gateway,
		membership:     membership,
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir, store'da
// Connection kaydını oluşturur ve client'ı Hub'a kaydeder.
//
// WebSocket bağlantısında HTTP header göndermek zordur (tarayıcı
// sınırlaması) — token ve bağlantı parametreleri query'den gelir:
//
//	ws://server/ws?token=JWT&workspace_id=w1&status=online&tz=Europe/Istanbul
//
// Flow:
// 1. Token'ı doğrula, workspace üyeliğini kontrol et
// 2. HTTP → WebSocket upgrade
// 3. Yeni connection id üret, Connect ile kaydı oluştur (per-user lock içinde)
// 4. Client'ı Hub'a kaydet, ready event'i gönder
// 5. ReadPump/WritePump başlat — socket kapanınca Disconnect tetiklenir
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		http.Error(w, "missing workspace_id", http.StatusBadRequest)
		return
	}

	member, err := h.membership.IsMember(r.Context(), workspaceID, claims.UserID)
	if err != nil {
		http.Error(w, "membership check failed", http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "not a workspace member", http.StatusForbidden)
		return
	}

	status := models.OnlineStatus(r.URL.Query().Get("status"))
	timeZone := r.URL.Query().Get("tz")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	// Connection id server tarafında üretilir — client seçemez.
	connectionID := uuid.NewString()

	record, err := h.gateway.Connect(r.Context(), &models.ConnectRequest{
		ConnectionID: connectionID,
		WorkspaceID:  workspaceID,
		UserID:       claims.UserID,
		Status:       status,
		TimeZone:     timeZone,
	})
	if err != nil {
		log.Printf("[ws] connect failed for user %s: %v", claims.UserID, err)
		conn.Close()
		return
	}

	client := &Client{
		hub:          h.hub,
		conn:         conn,
		connectionID: connectionID,
		userID:       claims.UserID,
		send:         make(chan []byte, sendBufferSize),
	}

	h.hub.register <- client

	// İlk event: client kendi connection kaydını öğrenir (id, expired_at).
	client.sendEvent(Event{Op: OpReady, Data: record})

	go client.WritePump()
	client.ReadPump() // bağlantı kapanana kadar bloklar
}
