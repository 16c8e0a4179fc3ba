// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun veya ephemeral store'daki bir kaydın Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
//
// Go'da `json:"username"` gibi tag'ler, struct field'larının JSON'a
// nasıl serialize/deserialize edileceğini belirler.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// OnlineStatus, kullanıcının çevrimiçi durumunu temsil eder.
// Go'da "type alias" ile string'e özel bir tip veririz —
// bu sayede sadece belirli değerlerin kullanılmasını sağlarız.
type OnlineStatus string

// İzin verilen OnlineStatus değerleri — sabitler (const).
// Go'da enum yoktur, bunun yerine typed constant'lar kullanılır.
//
// `sleep`: cihaz bağlı ama inaktif (ekran kilitli, uygulama arka planda).
// `idle` ve `offline`: kullanıcının KENDİ seçtiği durumlar — bu ikisi
// "sticky"dir, bağlantı aktivitesi tek başına bunları ezemez
// (bkz. services.Aggregate).
const (
	StatusOnline  OnlineStatus = "online"
	StatusIdle    OnlineStatus = "idle"
	StatusSleep   OnlineStatus = "sleep"
	StatusOffline OnlineStatus = "offline"
)

// Valid, status değerinin bilinen dört değerden biri olup olmadığını kontrol eder.
func (s OnlineStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusSleep, StatusOffline:
		return true
	}
	return false
}

// Sticky, kullanıcının kendi seçtiği ve bağlantı aktivitesiyle
// ezilmeyen status'ları işaretler.
func (s OnlineStatus) Sticky() bool {
	return s == StatusIdle || s == StatusOffline
}

// User, bir kullanıcıyı temsil eder.
//
// Status alanı sadece "son bilinen aggregate"tir — anlık gerçek,
// kullanıcının canlı Connection set'inden türetilir. Tüm cihazlar
// koptuğunda bu alan offline'a çekilir ve fallback olarak kalır.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	DisplayName  *string      `json:"display_name"` // *string = nullable — Go'da nil olabilir
	AvatarURL    *string      `json:"avatar_url"`
	PasswordHash string       `json:"-"` // json:"-" → API response'a DAHİL ETME (güvenlik!)
	Status       OnlineStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CreateUserRequest, kayıt olurken frontend'den gelen veri.
// PasswordHash yerine Password alırız — hash'leme service katmanında yapılır.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Validate, CreateUserRequest'in geçerli olup olmadığını kontrol eder.
//   - Username: 3-32 karakter, alfanumerik + alt çizgi
//   - Password: minimum 8 karakter
//   - DisplayName: opsiyonel, max 32 karakter
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}

	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if utf8.RuneCountInString(r.DisplayName) > 32 {
		return fmt.Errorf("display name must be at most 32 characters")
	}

	return nil
}

// LoginRequest, giriş yaparken frontend'den gelen veri.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// isValidUsernameChar, username'de izin verilen karakterleri kontrol eder.
func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
