package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"possync/internal/pkg/config"
	"possync/internal/pkg/errs"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func Connect(cfg config.RedisConfig) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errs.Wrap(err, "failed to ping redis")
	}

	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ExtractCache keeps the last built extract per device so a reconnecting
// client can re-fetch it without forcing a fresh build. Entries expire on
// the configured TTL; a stale extract is refreshed on the next sync.
type ExtractCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewExtractCache(client *redis.Client, cfg config.RedisConfig) queries.ExtractCache {
	return &ExtractCache{client: client, ttl: cfg.CacheTTL}
}

func extractKey(deviceID uuid.UUID) string {
	return "offline:extract:" + deviceID.String()
}

func (c *ExtractCache) Put(ctx context.Context, deviceID uuid.UUID, extract *queries.CacheExtract) error {
	body, err := json.Marshal(extract)
	if err != nil {
		return errs.Wrap(err, "failed to encode extract for cache")
	}
	if err := c.client.Set(ctx, extractKey(deviceID), body, c.ttl).Err(); err != nil {
		return errs.Wrap(err, "failed to cache extract")
	}
	return nil
}

func (c *ExtractCache) Get(ctx context.Context, deviceID uuid.UUID) (*queries.CacheExtract, bool, error) {
	body, err := c.client.Get(ctx, extractKey(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(err, "failed to read cached extract")
	}

	var extract queries.CacheExtract
	if err := json.Unmarshal(body, &extract); err != nil {
		// A corrupt entry behaves as a miss so the caller rebuilds.
		return nil, false, nil
	}
	return &extract, true, nil
}
