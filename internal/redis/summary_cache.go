package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

const (
	summaryCachePrefix = "analytics_summary:"
	summaryCacheTTL    = 5 * time.Minute
	summaryCacheName   = "analytics_summary"
)

// SummaryCacheRepo provides read-through caching for analytics
// summaries: Redis → PostgreSQL. Dashboard polling hits this path far
// more often than metric ingestion, so a short TTL is enough.
type SummaryCacheRepo struct {
	rdb       goredis.Cmdable
	analytics domain.AnalyticsRepository
}

// NewSummaryCacheRepo creates a new read-through summary cache.
func NewSummaryCacheRepo(rdb goredis.Cmdable, analytics domain.AnalyticsRepository) *SummaryCacheRepo {
	return &SummaryCacheRepo{rdb: rdb, analytics: analytics}
}

// summaryKey derives a stable cache key from the user and filter. The
// filter is hashed so arbitrary date ranges don't produce unbounded
// key material.
func summaryKey(userID int64, filter domain.AnalyticsFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s%d:%s", summaryCachePrefix, userID, hex.EncodeToString(sum[:8]))
}

// Summary looks up an analytics summary with read-through caching.
// Read path: Redis GET → PostgreSQL aggregate → populate Redis cache.
func (r *SummaryCacheRepo) Summary(ctx context.Context, userID int64, filter domain.AnalyticsFilter) (*domain.AnalyticsSummary, error) {
	key := summaryKey(userID, filter)

	// Try Redis cache
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var summary domain.AnalyticsSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			slog.Warn("Failed to unmarshal cached summary, falling through to PostgreSQL",
				"user_id", userID, "error", err)
		} else {
			metrics.CacheHits.WithLabelValues(summaryCacheName).Inc()
			return &summary, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		// Redis error — log and fall through to PostgreSQL
		slog.Warn("Redis summary cache GET failed, falling through to PostgreSQL",
			"user_id", userID, "error", err)
	}

	metrics.CacheMisses.WithLabelValues(summaryCacheName).Inc()

	summary, err := r.analytics.Summary(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("analytics summary lookup failed: %w", err)
	}

	// Populate Redis cache (best-effort)
	if encoded, err := json.Marshal(summary); err == nil {
		if err := r.rdb.Set(ctx, key, encoded, summaryCacheTTL).Err(); err != nil {
			slog.Warn("Failed to populate Redis summary cache",
				"user_id", userID, "error", err)
		}
	}

	return summary, nil
}

// Invalidate removes all cached summaries for a user after new metric
// rows land.
func (r *SummaryCacheRepo) Invalidate(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("%s%d:*", summaryCachePrefix, userID)

	iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan summary cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summary cache: %w", err)
	}
	return nil
}
