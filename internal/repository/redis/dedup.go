package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rensmac/govassist/internal/domain"
)

const (
	dedupPrefix = "chat:seen:"
	dedupTTL    = 10 * time.Minute
)

// ReplyCache deduplicates redelivered messages by caching the reply produced
// for each message fingerprint. A redelivery within the TTL gets the original
// reply back instead of being reprocessed.
type ReplyCache struct {
	client *Client
}

// NewReplyCache creates a new reply cache
func NewReplyCache(client *Client) *ReplyCache {
	return &ReplyCache{client: client}
}

// Get returns the cached reply for a fingerprint, or nil on a miss
func (c *ReplyCache) Get(ctx context.Context, fingerprint string) (*domain.ChatResponse, error) {
	key := fmt.Sprintf("%s%s", dedupPrefix, fingerprint)

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reply cache: %w", err)
	}

	var resp domain.ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reply: %w", err)
	}

	return &resp, nil
}

// Set stores the reply produced for a fingerprint
func (c *ReplyCache) Set(ctx context.Context, fingerprint string, resp *domain.ChatResponse) error {
	key := fmt.Sprintf("%s%s", dedupPrefix, fingerprint)

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	return c.client.rdb.Set(ctx, key, data, dedupTTL).Err()
}
