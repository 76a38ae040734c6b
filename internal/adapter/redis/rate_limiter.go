package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pscheid92/livepoll/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// fixedWindowScript increments the window counter of KEYS[1], starting a new
// window when none exists or the current one has ended at ARGV[1] (ms).
// Returns {count, reset_at_ms}.
var fixedWindowScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset_at'))
if reset == nil or now >= reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset_at', reset)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, reset}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset}
`)

// RateLimiter is the fixed-window limiter shared by all instances. Window
// boundaries come from the caller's clock; Redis key expiry replaces the
// sweep of the in-memory limiter.
type RateLimiter struct {
	rdb    *goredis.Client
	policy domain.RateLimitPolicy
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(rdb *goredis.Client, policy domain.RateLimitPolicy) *RateLimiter {
	return &RateLimiter{rdb: rdb, policy: policy}
}

func (l *RateLimiter) Admit(ctx context.Context, key domain.RateLimitKey, now time.Time) (domain.RateLimitDecision, error) {
	limit := l.policy.Limit(key)

	res, err := fixedWindowScript.Run(ctx, l.rdb,
		[]string{rateLimitKeyPrefix + key.String()},
		now.UnixMilli(),
		l.policy.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return domain.RateLimitDecision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	count := int(res[0])
	return domain.RateLimitDecision{
		Allowed: count <= limit,
		Count:   count,
		Limit:   limit,
		ResetAt: time.UnixMilli(res[1]),
	}, nil
}
