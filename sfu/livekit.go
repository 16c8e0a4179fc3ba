package sfu

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/akinalp/oda/config"
)

// liveKitClient, Client interface'inin LiveKit implementasyonu.
//
// LiveKit'te oda oluşturmak için ayrı bir API çağrısı gerekmez — geçerli
// bir token ile ilk katılan client odayı oluşturur (auto-create). Bu
// yüzden AllocateRoom ağa çıkmaz: oda kimliğini üretir ve server
// token'ını imzalar. Boşalan odaları LiveKit'in empty-timeout'u kapatır.
//
// LiveKit tek odada hem ses hem video track'lerini taşır — AudioRoomID
// ve VideoRoomID aynı odayı gösterir. Model iki alanı ayrı tutar çünkü
// API shape'i SFU implementasyonundan bağımsızdır.
type liveKitClient struct {
	cfg config.LiveKitConfig
}

func NewLiveKitClient(cfg config.LiveKitConfig) Client {
	return &liveKitClient{cfg: cfg}
}

func (c *liveKitClient) AllocateRoom(ctx context.Context, channelID string) (*RoomAllocation, error) {
	// Oda adına rastgele suffix: teardown sonrası yeni seçim TAZE oda
	// almalı — eski ada dönen geç client'lar hayalet odada buluşamaz.
	roomID := fmt.Sprintf("ch-%s-%s", channelID, uuid.NewString()[:8])

	// Server token: oda yönetimi (list/admin) için, client'lara verilmez.
	at := auth.NewAccessToken(c.cfg.APIKey, c.cfg.APISecret)
	at.AddGrant(&auth.VideoGrant{
		RoomCreate: true,
		RoomList:   true,
		RoomAdmin:  true,
		Room:       roomID,
	}).SetIdentity("server").SetValidFor(24 * time.Hour)

	serverToken, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("failed to sign server token: %w", err)
	}

	return &RoomAllocation{
		AudioRoomID:     roomID,
		VideoRoomID:     roomID,
		ServerURL:       c.cfg.URL,
		WSServerURL:     c.cfg.WSURL,
		ServerAuthToken: serverToken,
	}, nil
}

func (c *liveKitClient) IssueChannelToken(ctx context.Context, roomID, userID string) (string, error) {
	canPublish := true
	canSubscribe := true
	canPublishData := true

	// auth.NewAccessToken: LiveKit'in JWT builder'ı.
	// API key + secret ile imzalanır, client bununla LiveKit'e bağlanır.
	at := auth.NewAccessToken(c.cfg.APIKey, c.cfg.APISecret)

	at.AddGrant(&auth.VideoGrant{
		RoomJoin:       true,
		Room:           roomID,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}).
		SetIdentity(userID).
		SetValidFor(time.Hour) // Kısa validite — her yeni seçim taze token alır

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("failed to sign channel token: %w", err)
	}

	return token, nil
}
