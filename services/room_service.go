package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg/kvstore"
	"github.com/akinalp/oda/sfu"
)

// roomCacheTTL, credential cache'inin güvenlik TTL'i. Normal yaşam
// döngüsünde cache teardown ile silinir — bu TTL sadece teardown'ın hiç
// gelmediği patolojik durumlarda (process crash + boş kanal) bayat
// kaydın sonsuza dek yaşamasını önler.
const roomCacheTTL = 24 * time.Hour

// RoomService, kanal başına SFU oda yaşam döngüsünü yöneten broker.
//
// Kanalı İLK seçen bağlantı odayı tahsis ettirir, sonraki katılımcılar
// cache'teki credential'ları yeniden kullanır. Kanal boşaldığında
// Teardown cache'i siler — SFU'daki oda senkron kapatılmaz, SFU idle
// odaları kendisi toplar.
type RoomService interface {
	// GetOrCreate, kanalın aktif odasının credential'larını döner;
	// oda yoksa tahsis eder. Dönen credential'lar userID'ye özel
	// katılım token'ı içerir.
	GetOrCreate(ctx context.Context, channelID, userID string) (*models.RoomCredentials, error)

	// Teardown, kanalın oda cache'ini düşürür. Cache zaten yoksa no-op —
	// çifte teardown zararsızdır.
	Teardown(ctx context.Context, channelID string) error
}

// RoomCacheKey, oda credential cache'inin store anahtarı.
func RoomCacheKey(channelID string) string { return "channel:sfu:" + channelID }

type roomService struct {
	store kvstore.Store
	sfu   sfu.Client
}

func NewRoomService(store kvstore.Store, sfuClient sfu.Client) RoomService {
	return &roomService{store: store, sfu: sfuClient}
}

func (s *roomService) GetOrCreate(ctx context.Context, channelID, userID string) (*models.RoomCredentials, error) {
	raw, err := s.store.Get(ctx, RoomCacheKey(channelID))
	if err != nil {
		return nil, fmt.Errorf("failed to read room cache: %w", err)
	}

	if raw != "" {
		var cached models.RoomCredentials
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			// Bozuk cache — sil ve taze tahsise düş. Silinmezse aşağıdaki
			// SetNX bozuk kaydı asla ezemez.
			log.Printf("[rooms] corrupt room cache for channel %s, reallocating: %v", channelID, err)
			if derr := s.store.Delete(ctx, RoomCacheKey(channelID)); derr != nil {
				return nil, fmt.Errorf("failed to drop corrupt room cache: %w", derr)
			}
		} else {
			// Oda zaten canlı — sadece bu kullanıcıya katılım token'ı bas.
			token, err := s.sfu.IssueChannelToken(ctx, cached.VideoRoomID, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to issue channel token: %w", err)
			}
			cached.ChannelAuthToken = token
			return &cached, nil
		}
	}

	alloc, err := s.sfu.AllocateRoom(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate room for channel %s: %w", channelID, err)
	}

	creds := &models.RoomCredentials{
		AudioRoomID:     alloc.AudioRoomID,
		VideoRoomID:     alloc.VideoRoomID,
		ServerURL:       alloc.ServerURL,
		WSServerURL:     alloc.WSServerURL,
		ServerAuthToken: alloc.ServerAuthToken,
	}

	// Cache'e kullanıcıya özel token YAZILMAZ — her katılımcı kendi
	// token'ını alır, cache sadece odanın paylaşılan kimliğini taşır.
	//
	// SetNX: iki FARKLI kullanıcı boş kanalı aynı anda seçerse ikisi de
	// ayrı per-user lock tuttuğu için cache-miss görüp tahsis yapabilir.
	// İlk yazan kazanır; kaybeden kendi tahsisini bırakıp kazananın
	// odasını kullanır — SFU kimsenin katılmadığı odayı kendisi toplar.
	data, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room credentials: %w", err)
	}
	stored, err := s.store.SetNX(ctx, RoomCacheKey(channelID), string(data), roomCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to cache room credentials: %w", err)
	}
	if !stored {
		raw, err := s.store.Get(ctx, RoomCacheKey(channelID))
		if err != nil {
			return nil, fmt.Errorf("failed to re-read room cache: %w", err)
		}
		var winner models.RoomCredentials
		if raw != "" && json.Unmarshal([]byte(raw), &winner) == nil {
			log.Printf("[rooms] lost allocation race for channel %s, joining room %s", channelID, winner.VideoRoomID)
			creds = &winner
		}
		// raw boşsa kazanan bu arada teardown edilmiş — kendi
		// tahsisimizle devam etmek hâlâ tutarlı bir sonuçtur.
	}

	token, err := s.sfu.IssueChannelToken(ctx, creds.VideoRoomID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue channel token: %w", err)
	}

	out := *creds
	out.ChannelAuthToken = token

	log.Printf("[rooms] allocated room %s for channel %s", creds.VideoRoomID, channelID)
	return &out, nil
}

func (s *roomService) Teardown(ctx context.Context, channelID string) error {
	if err := s.store.Delete(ctx, RoomCacheKey(channelID)); err != nil {
		return fmt.Errorf("failed to drop room cache for channel %s: %w", channelID, err)
	}
	log.Printf("[rooms] tore down room cache for channel %s", channelID)
	return nil
}
