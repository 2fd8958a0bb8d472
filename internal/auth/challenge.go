package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flutterbye/platform/internal/shared"
)

// ChallengeStore issues and redeems one-shot login challenges. Challenges are
// keyed by wallet address in Redis with the configured freshness window as TTL.
type ChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChallengeStore constructs a ChallengeStore.
func NewChallengeStore(client *redis.Client, ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{client: client, ttl: ttl}
}

// Issue creates a fresh challenge message for the wallet, replacing any
// previous one.
func (c *ChallengeStore) Issue(ctx context.Context, wallet string) (string, time.Time, error) {
	nonce, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, err
	}
	message := fmt.Sprintf("Flutterbye authentication: %s", nonce)
	expiresAt := time.Now().Add(c.ttl)
	if err := c.client.Set(ctx, c.key(wallet), message, c.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return message, expiresAt, nil
}

// Consume checks that message is the current challenge for the wallet and
// burns it. A missing, expired, or mismatched challenge is ErrChallengeExpired;
// replays fail because the key is deleted on first redemption.
func (c *ChallengeStore) Consume(ctx context.Context, wallet, message string) error {
	stored, err := c.client.Get(ctx, c.key(wallet)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrChallengeExpired
		}
		return err
	}
	if stored != message {
		return shared.ErrChallengeExpired
	}
	return c.client.Del(ctx, c.key(wallet)).Err()
}

// TTL exposes the configured freshness window.
func (c *ChallengeStore) TTL() time.Duration {
	return c.ttl
}

func (c *ChallengeStore) key(wallet string) string {
	return "auth:challenge:" + wallet
}
