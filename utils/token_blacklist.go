package utils

import (
	"context"
	"sync"
	"time"
)

const revokedPrefix = "jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// RevokeToken marks a token unusable until it would have expired anyway.
// Redis is used when enabled so every server process sees the revocation.
func RevokeToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	defer revokedMu.Unlock()
	pruneRevokedLocked(time.Now())
	revoked[token] = expiresAt
}

// IsTokenRevoked checks if a token was revoked before natural expiration.
func IsTokenRevoked(ctx context.Context, token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedPrefix+token).Result(); err == nil && n > 0 {
			return true
		}
	}
	revokedMu.Lock()
	defer revokedMu.Unlock()
	exp, ok := revoked[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(revoked, token)
		return false
	}
	return true
}

func pruneRevokedLocked(now time.Time) {
	for tok, exp := range revoked {
		if now.After(exp) {
			delete(revoked, tok)
		}
	}
}
