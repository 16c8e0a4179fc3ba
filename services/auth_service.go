package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/repository"
)

// AuthService, kimlik doğrulama işlemleri — dışarıya açık API.
// Handler ve ws.Handler bu interface'e bağımlıdır, concrete struct'a değil.
//
// Token modeli stateless'tır: access token imza + expiry ile doğrulanır,
// sunucu tarafında session kaydı tutulmaz. Presence "oturumu" zaten
// kendi Connection kayıtlarıyla takip eder — ikinci bir session katmanı
// aynı bilgiyi çiftlerdi.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error)
	Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error)
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// AuthTokens, login/register sonrası dönen yanıt.
type AuthTokens struct {
	AccessToken string      `json:"access_token"`
	User        models.User `json:"user"`
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessExp time.Duration
}

// NewAuthService, constructor.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, accessExpMinutes int) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		accessExp: time.Duration(accessExpMinutes) * time.Minute,
	}
}

// Register, yeni kullanıcı kaydı oluşturur.
//
// Status offline başlar — "online" olmak login'in değil, bir Connection
// kaydı açmanın (WS bağlantısının) sonucudur.
func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Bcrypt hash (cost=12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayName *string
	if req.DisplayName != "" {
		displayName = &req.DisplayName
	}

	user := &models.User{
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Status:       models.StatusOffline,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	return s.generateTokens(user)
}

// Login, kullanıcı girişi yapar. Status'a DOKUNMAZ — presence engine'in işi.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Kullanıcı yok — ama "invalid credentials" dön, username
		// enumeration'a izin verme.
		return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
	}

	return s.generateTokens(user)
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}

func (s *authService) generateTokens(user *models.User) (*AuthTokens, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "oda",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AuthTokens{AccessToken: signed, User: *user}, nil
}
