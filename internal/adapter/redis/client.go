// Package redis holds the multi-instance adapters: the shared fixed-window
// rate limiter and the accepted-vote event channel.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to redisURL, retrying the initial ping with the startup
// policy. Metrics and circuit breaker hooks are installed after the client is
// known to be reachable. redisMetrics may be nil.
func NewClient(ctx context.Context, redisURL string, redisMetrics *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)

	policy := retry.StartupPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable yet, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	err = retry.DoVoid(ctx, policy, retry.RetryUnlessCancelled, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if redisMetrics != nil {
		rdb.AddHook(NewMetricsHook(redisMetrics))
	}
	rdb.AddHook(NewCircuitBreakerHook(redisMetrics))

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}
