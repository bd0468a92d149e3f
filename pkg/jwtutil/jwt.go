package jwtutil

import (
	"time"

	"identity-service/internal/claims"
	"identity-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var (
	secret     []byte
	expiration = time.Hour
)

// Initialize configures the signing key and token lifetime. Must be called
// before tokens are minted or validated.
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expiration = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// SessionClaims represents the JWT claims for an authenticated session. The
// embedded payload is a snapshot taken when the token was minted; it goes
// stale when the stored claims change and stays stale until the session
// refreshes its token or the token expires.
type SessionClaims struct {
	UID   string         `json:"uid"`
	Email string         `json:"email"`
	Scope claims.Payload `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken creates a session token embedding the given claims payload.
func GenerateToken(uid, email string, payload claims.Payload) (string, error) {
	sc := SessionClaims{
		UID:   uid,
		Email: email,
		Scope: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sc)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the session token
func ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if sc, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return sc, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
