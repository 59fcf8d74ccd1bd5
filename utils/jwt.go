package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sitesafe/safemap/config"
)

// Token roles.
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Claims defines JWT claims used in the application. Guest tokens carry the one contract they unlock.
type Claims struct {
	Role       string `json:"role"`
	ContractID uint   `json:"contract_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAdminToken issues an admin token valid for ttl.
func GenerateAdminToken(ttl time.Duration) (string, error) {
	return signClaims(Claims{Role: RoleAdmin}, ttl)
}

// GenerateGuestToken issues a guest token bound to contractID.
func GenerateGuestToken(contractID uint, ttl time.Duration) (string, error) {
	return signClaims(Claims{Role: RoleGuest, ContractID: contractID}, ttl)
}

func signClaims(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	// unique jti: revocation works per token string
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Get().JWTSecret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	secret := config.Get().JWTSecret
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleGuest {
		return nil, errors.New("unknown token role")
	}
	return claims, nil
}

// ExpiresAtOr returns the token expiry, or fallback when the claim is absent.
func (c *Claims) ExpiresAtOr(fallback time.Time) time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return fallback
}
