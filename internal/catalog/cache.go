package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache keeps recently fetched price lists in Redis. Misses and marshal
// failures degrade to the database; the cache never fails a read.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetLists returns the cached price lists for an organization if present.
func (c *Cache) GetLists(ctx context.Context, orgID uuid.UUID) ([]PriceList, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, listKey(orgID)).Bytes()
	if err != nil {
		return nil, false
	}
	var lists []PriceList
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, false
	}
	return lists, true
}

// SetLists stores price lists with the configured TTL.
func (c *Cache) SetLists(ctx context.Context, orgID uuid.UUID, lists []PriceList) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, listKey(orgID), data, c.ttl).Err()
}

// Invalidate drops the cached lists for an organization.
func (c *Cache) Invalidate(ctx context.Context, orgID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, listKey(orgID)).Err()
}

func listKey(orgID uuid.UUID) string {
	return "pricing:lists:" + orgID.String()
}
