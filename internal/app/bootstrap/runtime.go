package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/ig-lead-funnel/internal/channels/instagram"
	appconfig "github.com/wolfman30/ig-lead-funnel/internal/config"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err, "addr", cfg.RedisAddr)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildDeduper picks the comment dedup backend named by DEDUP_BACKEND. A
// backend whose dependency is unavailable degrades to no dedup with a warning;
// the webhook must keep answering either way.
func BuildDeduper(cfg *appconfig.Config, redisClient *redis.Client, store instagram.ProcessedMarker, logger *logging.Logger) instagram.Deduper {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.DedupBackend {
	case appconfig.DedupRedis:
		if redisClient == nil {
			logger.Warn("dedup backend redis unavailable; comments will not be deduplicated")
			return instagram.NoopDeduper{}
		}
		logger.Info("comment dedup enabled", "backend", "redis", "ttl", cfg.DedupTTL.String())
		return instagram.NewRedisDeduper(redisClient, cfg.DedupTTL)
	case appconfig.DedupPostgres:
		if store == nil {
			logger.Warn("dedup backend postgres unavailable; comments will not be deduplicated")
			return instagram.NoopDeduper{}
		}
		logger.Info("comment dedup enabled", "backend", "postgres")
		return instagram.NewStoreDeduper(store)
	default:
		return instagram.NoopDeduper{}
	}
}

// Pruner deletes processed-event markers older than a retention window.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// RunPruner calls p.Prune every interval until ctx is done.
func RunPruner(ctx context.Context, p Pruner, interval, retention time.Duration, logger *logging.Logger) {
	if p == nil || interval <= 0 {
		return
	}
	if logger == nil {
		logger = logging.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := p.Prune(ctx, retention)
			if err != nil {
				logger.Warn("processed event prune failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("pruned processed events", "removed", removed)
			}
		}
	}
}
