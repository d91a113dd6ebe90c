// internal/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/trackline/trackline/internal/room"
)

// RedisCache caches round pools per playlist selection so repeated lobby
// edits do not hammer the upstream catalog. Cache failures are logged and
// treated as misses; the wrapped source stays authoritative.
type RedisCache struct {
	rdb    *redis.Client
	next   Source
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisCache wraps next with a redis-backed cache.
func NewRedisCache(rdb *redis.Client, next Source, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

func cacheKey(playlistIDs []string) string {
	ids := append([]string{}, playlistIDs...)
	sort.Strings(ids)
	return "catalog:rounds:" + strings.Join(ids, ",")
}

// LoadRounds serves from cache when possible, otherwise loads from the
// wrapped source and stores the result.
func (c *RedisCache) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	key := cacheKey(playlistIDs)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var rounds []room.Round
		if jsonErr := json.Unmarshal(data, &rounds); jsonErr == nil {
			return rounds, nil
		}
		c.logger.WithField("key", key).Warn("Discarding undecodable catalog cache entry")
	} else if err != redis.Nil {
		c.logger.WithError(err).Warn("Catalog cache read failed, falling through")
	}

	rounds, err := c.next.LoadRounds(ctx, playlistIDs)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rounds)
	if err != nil {
		return rounds, fmt.Errorf("marshaling catalog cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Catalog cache write failed")
	}
	return rounds, nil
}
