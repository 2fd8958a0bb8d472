package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter tracks failed login attempts per wallet address inside a
// sliding window so signature guessing gets cut off early. Thresholds come
// from configuration.
type AttemptLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewAttemptLimiter constructs an AttemptLimiter.
func NewAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, max: max, window: window}
}

// Blocked reports whether the wallet already burned its attempt budget.
func (l *AttemptLimiter) Blocked(ctx context.Context, wallet string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(wallet)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return count >= l.max, nil
}

// RecordFailure bumps the failure counter, starting the window on the first
// failure.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, wallet string) error {
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, l.key(wallet))
	pipe.Expire(ctx, l.key(wallet), l.window)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset clears the counter after a successful login.
func (l *AttemptLimiter) Reset(ctx context.Context, wallet string) error {
	return l.client.Del(ctx, l.key(wallet)).Err()
}

func (l *AttemptLimiter) key(wallet string) string {
	return "auth:attempts:" + wallet
}
