// Package repository, kalıcı ve ephemeral veri erişim katmanını barındırır.
//
// Repository Pattern nedir?
// Service katmanı SQL veya Redis komutu bilmez — sadece bu interface'leri
// kullanır. Implementasyon değişse de (SQLite → Postgres, Redis → memory)
// service kodu etkilenmez, testlerde fake implementasyon geçilebilir.
package repository

import (
	"context"

	"github.com/akinalp/oda/models"
)

// UserRepository, kalıcı kullanıcı kayıtları için interface.
//
// Presence engine'in ihtiyacı dar: kullanıcıyı bul, son bilinen aggregate
// status'u güncelle. CRUD'un kalanı auth akışı için.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdateStatus, durable fallback status'u yazar. Anlık gerçek her zaman
	// canlı Connection set'inden türetilir — bu alan sadece "son bilinen"dir.
	UpdateStatus(ctx context.Context, id string, status models.OnlineStatus) error
}
