package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist tracks revoked token IDs (jti) in Redis. Entries expire
// together with the token they revoke, so the set never needs compaction.
type TokenBlacklist struct {
	client *redis.Client
	prefix string
}

// NewTokenBlacklist creates a new TokenBlacklist.
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{
		client: client,
		prefix: "revoked:",
	}
}

// Revoke marks a token ID as revoked until it would have expired anyway.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	if err := b.client.Set(ctx, b.prefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := b.client.Get(ctx, b.prefix+jti).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

// Ping checks if the Redis connection is healthy.
func (b *TokenBlacklist) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
