// Package main — WebSocket Hub callback wire-up.
//
// registerHubCallbacks, Hub'ın socket lifecycle callback'lerini
// connectionService'e bağlar.
//
// Bu callback'ler neden burada (main package'da)?
// Hub ws paketinde yaşıyor, ama connection state service katmanında.
// Hub'ın service'lere bağımlı olmasını istemiyoruz (Dependency Inversion).
// main package wire-up noktasıdır — tüm katmanları birbirine bağlar.
package main

import (
	"context"
	"log"
	"time"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/services"
	"github.com/akinalp/oda/ws"
)

// callbackTimeout, bir Hub callback'inin store + DB işlemleri için
// bekleyebileceği üst sınır. Socket'in request context'ine bağlanamayız —
// disconnect callback'i socket kapandıktan SONRA çalışır.
const callbackTimeout = 10 * time.Second

// registerHubCallbacks, Hub'ın üç lifecycle callback'ini register eder:
//
//   - OnDisconnect: socket koptuğunda connection kaydını söker, seçili
//     kanal varsa bırakır ve kullanıcının aggregate status'unu günceller.
//   - OnKeepAlive: heartbeat geldiğinde kaydın lifespan'ını ileri iter.
//   - OnResume: client kısa kopukluk sonrası eski connection id'siyle
//     dönerse eski kaydı (kanal seçimi dahil) yeni id altına taşır.
func registerHubCallbacks(hub *ws.Hub, connectionService services.ConnectionService) {
	hub.OnDisconnect(func(connectionID string) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		if err := connectionService.Disconnect(ctx, connectionID); err != nil {
			log.Printf("[callbacks] disconnect cleanup failed for %s: %v", connectionID, err)
		}
	})

	hub.OnKeepAlive(func(connectionID string) (*models.Connection, error) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		return connectionService.KeepAlive(ctx, connectionID)
	})

	hub.OnResume(func(userID, oldConnectionID, newConnectionID string) (*models.Connection, error) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		return connectionService.Rename(ctx, userID, oldConnectionID, newConnectionID)
	})
}
