package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/lock"
	"github.com/akinalp/oda/repository"
	"github.com/akinalp/oda/ws"
)

// ─── ISP Interface'leri ───

// UserStatusStore, ConnectionService'in kullanıcı tarafındaki minimal
// ihtiyacı. repository.UserRepository bunu implicit karşılar.
type UserStatusStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.OnlineStatus) error
}

// WorkspaceLister, status event fan-out'u için kullanıcının workspace
// listesini verir.
type WorkspaceLister interface {
	GetWorkspacesForUser(ctx context.Context, userID string) ([]models.Workspace, error)
}

// ChannelLeaver, disconnect sırasında kanal temizliğini yapan interface.
// SelectionService bunu karşılar — ConnectionService tüm seçim API'sine
// değil, sadece bu tek metoda bağımlıdır (circular dependency de böyle
// kırılır: selection service bağlantı repo'suna, connection service
// leaver'a bağlanır, ikisi birbirinin somut tipini görmez).
type ChannelLeaver interface {
	// LeaveOnDisconnect, bağlantıyı seçili kanalından söker. Çağıranın
	// per-user lock'u TUTUYOR olması beklenir — içeride lock alınmaz.
	LeaveOnDisconnect(ctx context.Context, conn *models.Connection) error
}

// ─── ConnectionService Interface ───

// ConnectionService, bağlantı yaşam döngüsünü ve presence türetmeyi yönetir.
//
// TÜM mutation'lar kullanıcının dağıtık lock'u altında çalışır
// (lock.UserKey): aynı kullanıcının iki cihazı aynı anda connect/disconnect
// olsa bile read-modify-write adımları serialize edilir. Lock alınamazsa
// mutation pkg.ErrLockTimeout ile reddedilir — kilitsiz yol yoktur.
type ConnectionService interface {
	// Connect, yeni bağlantı kaydı oluşturur ve gerekiyorsa kullanıcının
	// durable status'unu yükseltir (unset/sleep/offline → bildirilen durum).
	Connect(ctx context.Context, req *models.ConnectRequest) (*models.Connection, error)

	// Disconnect, kaydı ve index'lerini söker, seçili kanal varsa bırakır,
	// kullanıcının aggregate status'unu yeniden hesaplar. Kayıt zaten
	// yoksa no-op — TTL expiry ile explicit disconnect yarışabilir.
	Disconnect(ctx context.Context, connectionID string) error

	// KeepAlive, bağlantının lifespan'ını bugünden ileri uzatır.
	KeepAlive(ctx context.Context, connectionID string) (*models.Connection, error)

	// Rename, eski bağlantı kaydını yeni bir id altına taşır — kanal
	// seçimi korunur. Socket kopup yeniden kurulduğunda resume için.
	// Eski kayıt userID'ye ait değilse ErrConnectionNotFound: connection
	// id'leri kanal sorgularıyla görülebilir, sahiplik kanıt sayılmaz.
	Rename(ctx context.Context, userID, oldConnectionID, newConnectionID string) (*models.Connection, error)

	// SetStatus, kullanıcının durable status'unu elle değiştirir
	// (idle/offline seçimi buradan gelir) ve event yayınlar.
	SetStatus(ctx context.Context, userID string, status models.OnlineStatus) error

	// Okuma yolları — lock gerektirmez, bayat kayıtlar lazy filtrelenir.
	GetConnection(ctx context.Context, connectionID string) (*models.Connection, error)
	GetUserConnections(ctx context.Context, userID, workspaceID string) ([]models.Connection, error)
	GetWorkspaceConnections(ctx context.Context, workspaceID string) ([]models.Connection, error)
	GetChannelConnections(ctx context.Context, channelID string) ([]models.Connection, error)
	IsUserInChannel(ctx context.Context, userID, channelID string) (bool, error)
}

// ─── Implementasyon ───

type connectionService struct {
	conns      repository.ConnectionRepository
	users      UserStatusStore
	workspaces WorkspaceLister
	locker     lock.Locker
	leaver     ChannelLeaver
	hub        ws.EventPublisher
	lifespan   time.Duration
}

// NewConnectionService, yeni bir ConnectionService oluşturur.
// leaver pratikte SelectionService'tir — main.go'da önce o kurulur
// (SelectionService bu service'e bağımlı değildir, döngü yoktur).
func NewConnectionService(
	conns repository.ConnectionRepository,
	users UserStatusStore,
	workspaces WorkspaceLister,
	locker lock.Locker,
	leaver ChannelLeaver,
	hub ws.EventPublisher,
	lifespan time.Duration,
) ConnectionService {
	return &connectionService{
		conns:      conns,
		users:      users,
		workspaces: workspaces,
		locker:     locker,
		leaver:     leaver,
		hub:        hub,
		lifespan:   lifespan,
	}
}

func (s *connectionService) Connect(ctx context.Context, req *models.ConnectRequest) (*models.Connection, error) {
	if req.ConnectionID == "" || req.UserID == "" || req.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: connection_id, user_id and workspace_id are required", pkg.ErrBadRequest)
	}
	if !req.Status.Valid() {
		req.Status = models.StatusOnline
	}

	conn := &models.Connection{
		ID:          req.ConnectionID,
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Status:      req.Status,
		Media:       req.Media,
		TimeZone:    req.TimeZone,
		ExpiredAt:   time.Now().Add(s.lifespan),
	}

	err := lock.WithLock(ctx, s.locker, lock.UserKey(req.UserID), func(ctx context.Context) error {
		if err := s.conns.Save(ctx, conn); err != nil {
			return err
		}

		user, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", req.UserID, err)
		}

		// Durable status yükseltmesi: unset, sleep ve offline bağlantıyla
		// ezilebilir. idle kullanıcının kendi seçimidir, aynen kalır —
		// offline ise bağlantı kurulduğu anda anlamını yitirmiştir
		// (disconnect'in yazdığı fallback'tir, "görünmez mod" değil).
		if user.Status == "" || user.Status == models.StatusSleep || user.Status == models.StatusOffline {
			if user.Status != req.Status {
				if err := s.users.UpdateStatus(ctx, req.UserID, req.Status); err != nil {
					return err
				}
				s.notifyStatus(ctx, req.UserID, req.Status)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[connections] connected: conn=%s user=%s workspace=%s", conn.ID, conn.UserID, conn.WorkspaceID)
	return conn, nil
}

func (s *connectionService) Disconnect(ctx context.Context, connectionID string) error {
	// Lock anahtarı userID ister — önce kayda bak. Kayıt yoksa TTL
	// çoktan süpürmüş demektir: disconnect idempotent, sessizce dön.
	probe, err := s.conns.Get(ctx, connectionID)
	if errors.Is(err, pkg.ErrConnectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return lock.WithLock(ctx, s.locker, lock.UserKey(probe.UserID), func(ctx context.Context) error {
		conn, err := s.conns.Get(ctx, connectionID)
		if errors.Is(err, pkg.ErrConnectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// Seçili kanal varsa önce bırak. Lock zaten elimizde —
		// LeaveOnDisconnect kilitsiz varyanttır, tekrar almaz.
		if conn.ChannelID != "" && s.leaver != nil {
			if err := s.leaver.LeaveOnDisconnect(ctx, conn); err != nil && !benignLeaveError(err) {
				// Kanal temizliği başarısız olsa bile bağlantı sökülmeli —
				// bayat index lazy expiry ile eriyecek.
				log.Printf("[connections] channel cleanup failed for conn %s: %v", conn.ID, err)
			}
			conn.ChannelID = ""
		}

		if err := s.conns.Delete(ctx, conn); err != nil {
			return err
		}

		// Kalan bağlantılardan aggregate status'u türet.
		remaining, err := s.conns.GetUserConnections(ctx, conn.UserID, "")
		if err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, conn.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", conn.UserID, err)
		}

		newStatus := models.StatusOffline
		if agg := Aggregate(remaining, user.Status); agg != nil {
			newStatus = *agg
		}

		if newStatus != user.Status {
			if err := s.users.UpdateStatus(ctx, conn.UserID, newStatus); err != nil {
				return err
			}
			s.notifyStatus(ctx, conn.UserID, newStatus)
		}

		log.Printf("[connections] disconnected: conn=%s user=%s (remaining devices: %d)",
			conn.ID, conn.UserID, len(remaining))
		return nil
	})
}

func (s *connectionService) KeepAlive(ctx context.Context, connectionID string) (*models.Connection, error) {
	var out *models.Connection

	// Kullanıcı lock anahtarı için önce kaydın kendisi gerekir.
	probe, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	err = lock.WithLock(ctx, s.locker, lock.UserKey(probe.UserID), func(ctx context.Context) error {
		// Lock altında tekrar oku — probe ile lock arası kayıt ölmüş olabilir.
		conn, err := s.conns.Get(ctx, connectionID)
		if err != nil {
			return err
		}

		conn.ExpiredAt = time.Now().Add(s.lifespan)
		if err := s.conns.Save(ctx, conn); err != nil {
			return err
		}

		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *connectionService) Rename(ctx context.Context, userID, oldConnectionID, newConnectionID string) (*models.Connection, error) {
	if oldConnectionID == newConnectionID {
		return nil, fmt.Errorf("%w: old and new connection ids are identical", pkg.ErrBadRequest)
	}

	// Sahiplik kontrolü: eski kayıt başka kullanıcınınsa var olduğu bile
	// söylenmez — aksi halde herhangi bir workspace üyesi, kanal
	// sorgusundan gördüğü bir id ile başkasının oturumunu devralabilirdi.
	probe, err := s.conns.Get(ctx, oldConnectionID)
	if err != nil {
		return nil, err
	}
	if probe.UserID != userID {
		return nil, fmt.Errorf("%w: %s", pkg.ErrConnectionNotFound, oldConnectionID)
	}

	var out *models.Connection
	err = lock.WithLock(ctx, s.locker, lock.UserKey(userID), func(ctx context.Context) error {
		oldConn, err := s.conns.Get(ctx, oldConnectionID)
		if err != nil {
			return err
		}
		if oldConn.UserID != userID {
			return fmt.Errorf("%w: %s", pkg.ErrConnectionNotFound, oldConnectionID)
		}

		// Eski kaydı tüm index'lerden sök, aynı içeriği yeni id ile yaz.
		// Kanal seçimi ve media state kaybolmadan taşınır.
		if err := s.conns.Delete(ctx, oldConn); err != nil {
			return err
		}

		moved := *oldConn
		moved.ID = newConnectionID
		moved.ExpiredAt = time.Now().Add(s.lifespan)
		if err := s.conns.Save(ctx, &moved); err != nil {
			return err
		}

		out = &moved
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[connections] renamed: %s -> %s (user=%s)", oldConnectionID, newConnectionID, out.UserID)
	return out, nil
}

func (s *connectionService) SetStatus(ctx context.Context, userID string, status models.OnlineStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", pkg.ErrBadRequest, status)
	}

	return lock.WithLock(ctx, s.locker, lock.UserKey(userID), func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Status == status {
			return nil
		}
		if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
			return err
		}
		s.notifyStatus(ctx, userID, status)
		return nil
	})
}

func (s *connectionService) GetConnection(ctx context.Context, connectionID string) (*models.Connection, error) {
	return s.conns.Get(ctx, connectionID)
}

func (s *connectionService) GetUserConnections(ctx context.Context, userID, workspaceID string) ([]models.Connection, error) {
	return s.conns.GetUserConnections(ctx, userID, workspaceID)
}

func (s *connectionService) GetWorkspaceConnections(ctx context.Context, workspaceID string) ([]models.Connection, error) {
	return s.conns.GetWorkspaceConnections(ctx, workspaceID)
}

func (s *connectionService) GetChannelConnections(ctx context.Context, channelID string) ([]models.Connection, error) {
	return s.conns.GetChannelConnections(ctx, channelID)
}

func (s *connectionService) IsUserInChannel(ctx context.Context, userID, channelID string) (bool, error) {
	return s.conns.IsUserInChannel(ctx, userID, channelID)
}

// notifyStatus, status değişikliğini kullanıcının üye olduğu tüm
// workspace'lere ve kullanıcının kendi cihazlarına yayınlar.
// Event dağıtımı best-effort — hata mutation'ı geri almaz, loglanır.
func (s *connectionService) notifyStatus(ctx context.Context, userID string, status models.OnlineStatus) {
	event := ws.Event{
		Op:   ws.OpOnlineStatusUpdate,
		Data: ws.OnlineStatusData{UserID: userID, Status: status},
	}

	s.hub.PublishToUser(userID, event)

	workspaces, err := s.workspaces.GetWorkspacesForUser(ctx, userID)
	if err != nil {
		log.Printf("[connections] failed to list workspaces for status fan-out (user=%s): %v", userID, err)
		return
	}
	for _, w := range workspaces {
		s.hub.PublishToWorkspace(w.ID, event)
	}
}

// benignLeaveError, disconnect temizliği sırasında yutulabilir hatalar.
// Kanal bu arada silinmiş veya seçim çoktan düşmüş olabilir — bağlantının
// sökülmesini engellemezler.
func benignLeaveError(err error) bool {
	return errors.Is(err, pkg.ErrChannelNotFound) ||
		errors.Is(err, pkg.ErrChannelNotSelected) ||
		errors.Is(err, pkg.ErrConnectionNotFound)
}
