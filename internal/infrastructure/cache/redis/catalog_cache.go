package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// CatalogCache decorates a catalog provider with a per-channel Redis cache.
// Cache trouble never fails a request; it falls through to the upstream.
type CatalogCache struct {
	client   *goredis.Client
	upstream catalog.Provider
	ttl      time.Duration
	log      logger.Logger
}

func NewCatalogCache(client *goredis.Client, upstream catalog.Provider, ttl time.Duration, log logger.Logger) *CatalogCache {
	return &CatalogCache{
		client:   client,
		upstream: upstream,
		ttl:      ttl,
		log:      log,
	}
}

func cacheKey(channel string) string {
	return fmt.Sprintf("%s_catalog_data", channel)
}

func (c *CatalogCache) GetCatalog(ctx context.Context, channel string) (catalog.Catalog, error) {
	key := cacheKey(channel)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var snapshot catalog.Catalog
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			return snapshot, nil
		}
		c.log.Warn("discarding undecodable catalog cache entry", logger.String("key", key))
	} else if err != goredis.Nil {
		c.log.Error("catalog cache read failed", logger.String("key", key), logger.Error(err))
	}

	snapshot, err := c.upstream.GetCatalog(ctx, channel)
	if err != nil {
		return catalog.Catalog{}, err
	}

	if encoded, err := json.Marshal(snapshot); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.log.Error("catalog cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot for a channel.
func (c *CatalogCache) Invalidate(ctx context.Context, channel string) error {
	return c.client.Del(ctx, cacheKey(channel)).Err()
}
