// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi "ince" (thin) olmalı:
// 1. Request'i parse et (JSON body, path/query parametreleri)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı içermez, ASLA store'a doğrudan erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/pkg/ratelimit"
	"github.com/akinalp/oda/services"
)

// AuthHandler, auth endpoint'lerini yöneten struct.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.AttemptLimiter
}

// NewAuthHandler, constructor.
// loginLimiter: brute-force koruması. nil ise rate limiting devre dışı.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.AttemptLimiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
	}
}

// Register godoc
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, tokens)
}

// Login godoc
// POST /api/auth/login
//
// IP bazlı rate limit: pencere içindeki deneme sayısı aşılırsa 429.
// Başarılı login sayacı sıfırlar — meşru kullanıcı bloke olmaz.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	pkg.JSON(w, http.StatusOK, tokens)
}

// Me godoc
// GET /api/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// contextKey, context value çakışmalarını önlemek için özel tip.
// String tip kullanılsaydı başka paketlerin "user" key'iyle çakışabilirdi.
type contextKey string

// UserContextKey, auth middleware'ının doğrulanmış kullanıcıyı request
// context'ine koyduğu anahtar.
const UserContextKey contextKey = "user"
