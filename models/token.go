package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT token'ın içindeki veriler (payload).
//
// Bu struct models paketinde tanımlanır çünkü:
// - Birden fazla katman (services, ws, middleware) tarafından kullanılır
// - Circular dependency'yi önler — her katman models'e bağımlı olabilir
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
