package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

const (
	embedCachePrefix = "embed_config:"
	embedCacheName   = "embed_config"
)

// ErrEmbedNotCached is returned when no embed config is cached for a report.
var ErrEmbedNotCached = errors.New("embed config not cached")

// EmbedCacheRepo caches generated Power BI embed configurations per
// report and user role. Entries expire before the embed token does, so
// a cached config is always usable.
type EmbedCacheRepo struct {
	rdb goredis.Cmdable
}

func NewEmbedCacheRepo(rdb goredis.Cmdable) *EmbedCacheRepo {
	return &EmbedCacheRepo{rdb: rdb}
}

func embedKey(reportID, role string) string {
	return embedCachePrefix + reportID + ":" + role
}

// Get returns a cached embed config, or ErrEmbedNotCached.
func (r *EmbedCacheRepo) Get(ctx context.Context, reportID, role string, out any) error {
	data, err := r.rdb.Get(ctx, embedKey(reportID, role)).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.CacheMisses.WithLabelValues(embedCacheName).Inc()
		return ErrEmbedNotCached
	}
	if err != nil {
		return fmt.Errorf("embed cache GET failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal cached embed config: %w", err)
	}
	metrics.CacheHits.WithLabelValues(embedCacheName).Inc()
	return nil
}

// Set stores an embed config until just before the token expires.
// Failures are logged, not returned: the cache is best-effort.
func (r *EmbedCacheRepo) Set(ctx context.Context, reportID, role string, config any, tokenExpiry time.Time, now time.Time) {
	ttl := tokenExpiry.Sub(now) - 5*time.Minute
	if ttl <= 0 {
		return
	}

	encoded, err := json.Marshal(config)
	if err != nil {
		slog.Warn("Failed to marshal embed config for cache", "report_id", reportID, "error", err)
		return
	}
	if err := r.rdb.Set(ctx, embedKey(reportID, role), encoded, ttl).Err(); err != nil {
		slog.Warn("Failed to populate embed config cache", "report_id", reportID, "error", err)
	}
}

// Invalidate drops all cached embed configs for a report, e.g. after a
// dataset refresh or access change.
func (r *EmbedCacheRepo) Invalidate(ctx context.Context, reportID string) error {
	iter := r.rdb.Scan(ctx, 0, embedCachePrefix+reportID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan embed cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate embed cache: %w", err)
	}
	return nil
}
