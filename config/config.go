// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — Single Responsibility: her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	LiveKit  LiveKitConfig
	Presence PresenceConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/oda.db)

	// SeedDemo true ise açılışta boş DB'ye demo kullanıcı + workspace
	// + kanallar eklenir. Sadece development için.
	SeedDemo bool
}

// JWTConfig, JWT token ayarları.
type JWTConfig struct {
	Secret            string // Token imzalama anahtarı — GİZLİ TUTULMALI
	AccessTokenExpiry int    // Dakika cinsinden (varsayılan: 60)
}

// RedisConfig, paylaşımlı TTL store ayarları.
// Addr boş bırakılırsa in-memory store kullanılır — tek instance'lı
// development için yeterli, horizontal scaling'de Redis şart.
type RedisConfig struct {
	Addr     string // ör: "localhost:6379"; boş = in-memory
	Password string
	DB       int
}

// LiveKitConfig, harici SFU (media server) ayarları.
type LiveKitConfig struct {
	URL       string // HTTP API URL (ör: http://localhost:7880)
	WSURL     string // Client'ların bağlanacağı WebSocket URL
	APIKey    string
	APISecret string
}

// PresenceConfig, presence engine tuning değerleri.
type PresenceConfig struct {
	// ConnectionLifespan: heartbeat gelmezse bir bağlantının ölü
	// sayılacağı süre. Heartbeat her geldiğinde ileri itilir.
	ConnectionLifespan time.Duration

	// LockTTL / LockRetries / LockRetryDelay: per-user lock tuning'i.
	LockTTL        time.Duration
	LockRetries    int
	LockRetryDelay time.Duration
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	lifespan, err := getEnvDuration("PRESENCE_CONNECTION_LIFESPAN", 30*time.Second)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getEnvDuration("PRESENCE_LOCK_TTL", 3*time.Second)
	if err != nil {
		return nil, err
	}
	lockRetryDelay, err := getEnvDuration("PRESENCE_LOCK_RETRY_DELAY", 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	lockRetries, err := strconv.Atoi(getEnv("PRESENCE_LOCK_RETRIES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_LOCK_RETRIES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path:     getEnv("DATABASE_PATH", "./data/oda.db"),
			SeedDemo: getEnv("DATABASE_SEED_DEMO", "false") == "true",
		},
		JWT: JWTConfig{
			Secret:            jwtSecret,
			AccessTokenExpiry: accessExpiry,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LiveKit: LiveKitConfig{
			URL:       getEnv("LIVEKIT_URL", "http://localhost:7880"),
			WSURL:     getEnv("LIVEKIT_WS_URL", "ws://localhost:7880"),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
		},
		Presence: PresenceConfig{
			ConnectionLifespan: lifespan,
			LockTTL:            lockTTL,
			LockRetries:        lockRetries,
			LockRetryDelay:     lockRetryDelay,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// getEnvDuration, "30s" / "200ms" formatındaki env değerini parse eder.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
