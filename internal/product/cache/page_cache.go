package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/dto"
)

// VersionKey holds the catalog generation. Page keys embed it, so bumping it
// orphans every cached page at once and the TTL reclaims them.
const VersionKey = "catalog:version"

type RedisPageCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisPageCache(client *goredis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl}
}

// Key names the cache entry for a page under the current catalog version.
func (c *RedisPageCache) Key(ctx context.Context, search string, page, size int) (string, error) {
	version, err := c.client.Get(ctx, VersionKey).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("reading catalog version: %w", err)
	}
	return fmt.Sprintf("catalog:v%d:p%d:s%d:%s", version, page, size, strings.ToLower(search)), nil
}

// Get returns nil without error on a miss.
func (c *RedisPageCache) Get(ctx context.Context, key string) (*dto.ProductPage, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached page: %w", err)
	}

	var page dto.ProductPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decoding cached page: %w", err)
	}
	return &page, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key string, page *dto.ProductPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encoding page: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached page: %w", err)
	}
	return nil
}

// Invalidate bumps the catalog version.
func (c *RedisPageCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, VersionKey).Err(); err != nil {
		return fmt.Errorf("bumping catalog version: %w", err)
	}
	return nil
}

// NoopPageCache is used when no Redis address is configured.
type NoopPageCache struct{}

func (NoopPageCache) Key(context.Context, string, int, int) (string, error) { return "", nil }

func (NoopPageCache) Get(context.Context, string) (*dto.ProductPage, error) { return nil, nil }

func (NoopPageCache) Set(context.Context, string, *dto.ProductPage) error { return nil }

func (NoopPageCache) Invalidate(context.Context) error { return nil }
