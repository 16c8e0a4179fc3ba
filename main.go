// Package main, oda backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. SQLite database'i başlat (kalıcı kimlik verisi)
//  3. Ephemeral store'u seç (Redis veya in-memory)
//  4. Per-user lock'ı kur (store ile aynı backend)
//  5. Repository'leri oluştur
//  6. WebSocket Hub'ı başlat
//  7. Service'leri oluştur (repository'ler + lock + hub ile)
//  8. Hub callback'lerini bağla (heartbeat / resume / disconnect)
//  9. Handler'ları oluştur, route'ları bağla
// 10. CORS yapılandır
// 11. HTTP Server'ı başlat, graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/akinalp/oda/config"
	"github.com/akinalp/oda/database"
	"github.com/akinalp/oda/handlers"
	"github.com/akinalp/oda/pkg/kvstore"
	"github.com/akinalp/oda/pkg/lock"
	"github.com/akinalp/oda/pkg/ratelimit"
	"github.com/akinalp/oda/repository"
	"github.com/akinalp/oda/services"
	"github.com/akinalp/oda/sfu"
	"github.com/akinalp/oda/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] oda server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database (SQLite) ───
	//
	// Kalıcı veri — kullanıcılar, workspace'ler, kanallar.
	// Migration'lar binary'ye gömülüdür (database/embed.go),
	// çalıştırıldığı dizinden bağımsız olarak bulunurlar.
	db, err := database.New(cfg.Database.Path, database.EmbeddedMigrations)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Ephemeral Store ───
	//
	// Connection kayıtları ve index hash'leri burada yaşar.
	// REDIS_ADDR boşsa in-memory store kullanılır — tek instance'lı
	// development için yeterli. Birden fazla instance çalıştırılacaksa
	// Redis şart: tüm instance'lar aynı connection state'ini görmeli.
	var store kvstore.Store
	var redisClient *redis.Client

	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("[main] failed to connect to redis at %s: %v", cfg.Redis.Addr, err)
		}
		store = kvstore.NewRedis(redisClient)
		log.Printf("[main] using redis store at %s", cfg.Redis.Addr)
	} else {
		store = kvstore.NewMemory()
		log.Println("[main] using in-memory store (single instance only)")
	}

	// ─── 4. Per-User Lock ───
	//
	// Bir kullanıcının connection set'ine dokunan TÜM mutation'lar bu
	// lock altında çalışır. Lock backend'i store ile aynı olmalı —
	// in-memory lock, Redis store'lu multi-instance kurulumda işe yaramaz.
	lockOpts := lock.Options{
		TTL:        cfg.Presence.LockTTL,
		Retries:    cfg.Presence.LockRetries,
		RetryDelay: cfg.Presence.LockRetryDelay,
	}

	var locker lock.Locker
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, lockOpts)
	} else {
		locker = lock.NewMemoryLocker(lockOpts)
	}

	// ─── 5. Repository Layer ───
	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	workspaceRepo := repository.NewSQLiteWorkspaceRepo(db.Conn)
	channelRepo := repository.NewSQLiteChannelRepo(db.Conn)
	connRepo := repository.NewKVConnectionRepo(store)

	// Demo seed — boş development DB'sine kullanıcı + workspace + kanal ekler.
	if cfg.Database.SeedDemo {
		if err := seedDemoData(context.Background(), db.Conn); err != nil {
			log.Fatalf("[main] demo seed failed: %v", err)
		}
	}

	// ─── 6. WebSocket Hub ───
	//
	// Hub, bu instance'a bağlı socket'leri yönetir ve EventPublisher
	// interface'ini implement eder. Workspace/kanal scope'lu yayınlar
	// için üyelik bilgisini connRepo'dan okur — Hub'ın kendisi kimin
	// hangi kanalda olduğunu TUTMAZ, tek doğruluk kaynağı store'dur.
	hub := ws.NewHub(connRepo)

	// ─── 7. Service Layer ───
	//
	// Sıralama önemli: selectionService, connectionService'ten ÖNCE
	// oluşturulmalı — Disconnect sırasında kanal temizliği için
	// ChannelLeaver olarak inject edilir (ters yönde bağımlılık yok).
	sfuClient := sfu.NewLiveKitClient(cfg.LiveKit)
	roomService := services.NewRoomService(store, sfuClient)
	selectionService := services.NewSelectionService(connRepo, channelRepo, roomService, store, locker, hub)
	connectionService := services.NewConnectionService(
		connRepo,
		userRepo,
		workspaceRepo,
		locker,
		selectionService,
		hub,
		cfg.Presence.ConnectionLifespan,
	)
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// ─── 8. Hub Callbacks ───
	registerHubCallbacks(hub, connectionService)
	go hub.Run()

	// ─── 9. Handlers & Routes ───
	loginLimiter := ratelimit.NewAttemptLimiter(5, 15*time.Minute)
	defer loginLimiter.Stop()

	authHandler := handlers.NewAuthHandler(authService, loginLimiter)
	presenceHandler := handlers.NewPresenceHandler(connectionService)
	selectionHandler := handlers.NewSelectionHandler(selectionService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceRepo, channelRepo)
	wsHandler := ws.NewHandler(hub, authService, connectionService, workspaceRepo)

	mux := http.NewServeMux()
	initRoutes(mux, authService, userRepo, authHandler, presenceHandler, selectionHandler, workspaceHandler, wsHandler)

	// ─── 10. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:1420", "tauri://localhost"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// ─── 11. HTTP Server & Graceful Shutdown ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat — her kapanan socket kendi
	// Disconnect'ini tetikler, connection kayıtları temizlenir.
	// Sonra HTTP server'ı kapat: yeni request kabul etmeyi durdurur,
	// mevcut request'lerin bitmesini bekler (5sn timeout).
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
