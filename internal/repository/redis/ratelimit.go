package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:chat:"

// RateLimiter caps how many chat messages a single user may send per minute.
// Counters are keyed per channel adapter and user, so one talkative user
// cannot consume a whole adapter's budget.
type RateLimiter struct {
	client            *Client
	messagesPerMinute int
	burst             int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, messagesPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		messagesPerMinute: messagesPerMinute,
		burst:             burst,
	}
}

func rateLimitKey(channelID, userID string) string {
	return fmt.Sprintf("%s%s:%s", rateLimitPrefix, channelID, userID)
}

// Allow counts one message against the user's current minute window.
// Returns (allowed, remaining, resetTime, error).
func (r *RateLimiter) Allow(ctx context.Context, channelID, userID string) (bool, int, time.Time, error) {
	key := rateLimitKey(channelID, userID)
	windowEnd := time.Now().Truncate(time.Minute).Add(time.Minute)

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, time.Minute)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	limit := int64(r.messagesPerMinute + r.burst)
	count := incrCmd.Val()

	remaining := int(limit - count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, windowEnd, nil
}

// Reset clears the counter for one user on one channel
func (r *RateLimiter) Reset(ctx context.Context, channelID, userID string) error {
	return r.client.rdb.Del(ctx, rateLimitKey(channelID, userID)).Err()
}
