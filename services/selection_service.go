package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/kvstore"
	"github.com/akinalp/oda/pkg/lock"
	"github.com/akinalp/oda/repository"
	"github.com/akinalp/oda/ws"
)

// ChannelGetter, kanal varlık kontrolü için minimal interface.
// repository.ChannelRepository bunu implicit karşılar.
type ChannelGetter interface {
	GetByID(ctx context.Context, id string) (*models.Channel, error)
}

// ConversationKey, kanalın "aktif görüşme" işaretinin store anahtarı.
// İşareti çağrı yönetimi (bu modülün dışında) yazar ve siler — seçim
// koordinatörü sadece OKUR: işaret varken kanal terk edilemez.
func ConversationKey(channelID string) string { return "channel:conversation:" + channelID }

// SelectionService, kanal seçim koordinatörü: bir bağlantının hangi
// kanalda olduğunu, kanal index'ini ve oda yaşam döngüsünü yönetir.
//
// İki invariant'ı korur:
//  1. Bir bağlantı aynı anda EN FAZLA bir kanal seçebilir
//  2. Kanal index'i boşaldığı anda odanın credential cache'i düşer
//
// Connect/Disconnect gibi, tüm mutation'lar kullanıcının per-user lock'u
// altında çalışır.
type SelectionService interface {
	// Select, bağlantıyı kanala katar ve oda credential'larını döner.
	// Aynı kanal zaten seçiliyse hata DEĞİL — media yenilemesi gibi
	// davranır, taze credential döner. Başka kanal seçiliyse
	// pkg.ErrChannelAlreadySelected.
	Select(ctx context.Context, channelID, userID, connectionID string, media models.MediaState) (*models.RoomCredentials, error)

	// Unselect, bağlantıyı kanaldan çıkarır. Kanal boşalırsa oda
	// teardown edilir. Aktif görüşme işareti varken reddedilir.
	Unselect(ctx context.Context, channelID, userID, connectionID string) error

	// UpdateMediaState, kanal içindeki mic/camera/screen/speaking
	// durumunu günceller ve kanaldaki diğer bağlantılara yayınlar.
	UpdateMediaState(ctx context.Context, userID, connectionID string, media models.MediaState) error

	// LeaveOnDisconnect — bkz. ChannelLeaver. Lock'u çağıran tutar.
	LeaveOnDisconnect(ctx context.Context, conn *models.Connection) error
}

type selectionService struct {
	conns    repository.ConnectionRepository
	channels ChannelGetter
	rooms    RoomService
	store    kvstore.Store
	locker   lock.Locker
	hub      ws.EventPublisher
}

func NewSelectionService(
	conns repository.ConnectionRepository,
	channels ChannelGetter,
	rooms RoomService,
	store kvstore.Store,
	locker lock.Locker,
	hub ws.EventPublisher,
) SelectionService {
	return &selectionService{
		conns:    conns,
		channels: channels,
		rooms:    rooms,
		store:    store,
		locker:   locker,
		hub:      hub,
	}
}

func (s *selectionService) Select(ctx context.Context, channelID, userID, connectionID string, media models.MediaState) (*models.RoomCredentials, error) {
	var creds *models.RoomCredentials

	err := lock.WithLock(ctx, s.locker, lock.UserKey(userID), func(ctx context.Context) error {
		conn, err := s.ownedConnection(ctx, connectionID, userID)
		if err != nil {
			return err
		}

		if _, err := s.channels.GetByID(ctx, channelID); err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return fmt.Errorf("%w: %s", pkg.ErrChannelNotFound, channelID)
			}
			return err
		}

		if conn.ChannelID != "" && conn.ChannelID != channelID {
			return fmt.Errorf("%w: connection is in channel %s", pkg.ErrChannelAlreadySelected, conn.ChannelID)
		}
		rejoin := conn.ChannelID == channelID

		conn.ChannelID = channelID
		conn.Media = media
		if err := s.conns.Save(ctx, conn); err != nil {
			return err
		}

		creds, err = s.rooms.GetOrCreate(ctx, channelID, userID)
		if err != nil {
			return err
		}

		// Aynı kanala yeniden katılım media yenilemesidir — kanaldakiler
		// zaten bu bağlantıyı biliyor, select yerine media event'i gider.
		if rejoin {
			s.hub.PublishToChannelExcept(channelID, connectionID, ws.Event{
				Op:   ws.OpMediaStateUpdate,
				Data: ws.MediaStateData{UserID: userID, ConnectionID: connectionID, ChannelID: channelID, Media: media},
			})
		} else {
			s.hub.PublishToChannelExcept(channelID, connectionID, ws.Event{
				Op:   ws.OpChannelSelect,
				Data: ws.ChannelPresenceData{UserID: userID, ConnectionID: connectionID, ChannelID: channelID, Media: media},
			})
		}

		log.Printf("[selection] conn=%s user=%s selected channel %s", connectionID, userID, channelID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return creds, nil
}

func (s *selectionService) Unselect(ctx context.Context, channelID, userID, connectionID string) error {
	return lock.WithLock(ctx, s.locker, lock.UserKey(userID), func(ctx context.Context) error {
		conn, err := s.ownedConnection(ctx, connectionID, userID)
		if err != nil {
			return err
		}

		if conn.ChannelID == "" {
			return pkg.ErrChannelNotSelected
		}
		if conn.ChannelID != channelID {
			return fmt.Errorf("%w: connection is in channel %s", pkg.ErrChannelSelectedElsewhere, conn.ChannelID)
		}

		// Aktif görüşme sürerken kanal terk edilemez — client önce
		// çağrıyı bitirmeli.
		active, err := s.store.Exists(ctx, ConversationKey(channelID))
		if err != nil {
			return fmt.Errorf("failed to check conversation marker: %w", err)
		}
		if active {
			return fmt.Errorf("%w: channel %s", pkg.ErrActiveConversation, channelID)
		}

		if err := s.leave(ctx, conn); err != nil {
			return err
		}

		log.Printf("[selection] conn=%s user=%s left channel %s", connectionID, userID, channelID)
		return nil
	})
}

func (s *selectionService) UpdateMediaState(ctx context.Context, userID, connectionID string, media models.MediaState) error {
	return lock.WithLock(ctx, s.locker, lock.UserKey(userID), func(ctx context.Context) error {
		conn, err := s.ownedConnection(ctx, connectionID, userID)
		if err != nil {
			return err
		}

		if conn.ChannelID == "" {
			return pkg.ErrChannelNotSelected
		}

		conn.Media = media
		if err := s.conns.Save(ctx, conn); err != nil {
			return err
		}

		s.hub.PublishToChannelExcept(conn.ChannelID, connectionID, ws.Event{
			Op:   ws.OpMediaStateUpdate,
			Data: ws.MediaStateData{UserID: userID, ConnectionID: connectionID, ChannelID: conn.ChannelID, Media: media},
		})
		return nil
	})
}

// LeaveOnDisconnect, disconnect temizliği: lock'u ÇAĞIRAN tutar, burada
// alınmaz. Aktif görüşme işareti kontrol edilmez — socket zaten ölü,
// bağlantıyı kanalda "tutmanın" bir anlamı yok; görüşme kaydı çağrı
// yönetiminin kendi timeout'uyla kapanır.
func (s *selectionService) LeaveOnDisconnect(ctx context.Context, conn *models.Connection) error {
	if conn.ChannelID == "" {
		return nil
	}
	return s.leave(ctx, conn)
}

// leave, bağlantıyı kanaldan söker: index, kayıt, boşalma kontrolü,
// teardown ve event. Çağıran lock'u tutuyor olmalı.
func (s *selectionService) leave(ctx context.Context, conn *models.Connection) error {
	channelID := conn.ChannelID

	if err := s.conns.RemoveFromChannel(ctx, channelID, conn.ID); err != nil {
		return err
	}

	conn.ChannelID = ""
	conn.Media = models.MediaState{}
	if err := s.conns.Save(ctx, conn); err != nil {
		return err
	}

	remaining, err := s.conns.CountChannelConnections(ctx, channelID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.rooms.Teardown(ctx, channelID); err != nil {
			// Teardown başarısızlığı bırakmayı geri almaz — cache'in
			// güvenlik TTL'i var, en geç onunla düşer.
			log.Printf("[selection] room teardown failed for channel %s: %v", channelID, err)
		}
	}

	s.hub.PublishToChannel(channelID, ws.Event{
		Op:   ws.OpChannelUnselect,
		Data: ws.ChannelPresenceData{UserID: conn.UserID, ConnectionID: conn.ID, ChannelID: channelID, Media: models.MediaState{}},
	})
	return nil
}

// ownedConnection, canlı kaydı döner ve bağlantının gerçekten bu
// kullanıcıya ait olduğunu doğrular — başkasının connection id'siyle
// kanal operasyonu yapılamaz.
func (s *selectionService) ownedConnection(ctx context.Context, connectionID, userID string) (*models.Connection, error) {
	conn, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.UserID != userID {
		return nil, fmt.Errorf("%w: %s", pkg.ErrConnectionNotFound, connectionID)
	}
	return conn, nil
}
