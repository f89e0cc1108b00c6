package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "elev8:revoked:"

// SessionRevocations stores signed out session IDs until their tokens
// would have expired anyway. It implements identity.Revoker and
// identity.RevocationChecker.
type SessionRevocations struct {
	client *redis.Client
}

// NewSessionRevocations creates a revocation list on client.
func NewSessionRevocations(client *redis.Client) *SessionRevocations {
	return &SessionRevocations{client: client}
}

// Revoke records sessionID as revoked until expiresAt.
func (s *SessionRevocations) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether sessionID was revoked.
func (s *SessionRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
