package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/domain"
)

const DefaultSweepProbability = 0.01

// RateLimiter is a process-local fixed-window limiter. Each admission has a
// small independent chance of sweeping expired windows; correctness does not
// depend on when that happens.
type RateLimiter struct {
	policy           domain.RateLimitPolicy
	sweepProbability float64
	random           func() float64
	metrics          *metrics.RateLimitMetrics

	mu      sync.Mutex
	entries map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithSweepProbability sets the per-request chance of a sweep, in [0,1].
func WithSweepProbability(p float64) RateLimiterOption {
	return func(l *RateLimiter) { l.sweepProbability = p }
}

// WithRandom replaces the random source used to decide on sweeps.
func WithRandom(random func() float64) RateLimiterOption {
	return func(l *RateLimiter) { l.random = random }
}

// WithMetrics records sweep activity.
func WithMetrics(m *metrics.RateLimitMetrics) RateLimiterOption {
	return func(l *RateLimiter) { l.metrics = m }
}

func NewRateLimiter(policy domain.RateLimitPolicy, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		policy:           policy,
		sweepProbability: DefaultSweepProbability,
		random:           rand.Float64,
		entries:          make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

func (l *RateLimiter) Admit(_ context.Context, key domain.RateLimitKey, now time.Time) (domain.RateLimitDecision, error) {
	limit := l.policy.Limit(key)
	k := key.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.random() < l.sweepProbability {
		l.sweepLocked(now)
	}

	w, ok := l.entries[k]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		l.entries[k] = w
	} else {
		w.count++
	}

	return domain.RateLimitDecision{
		Allowed: w.count <= limit,
		Count:   w.count,
		Limit:   limit,
		ResetAt: w.resetAt,
	}, nil
}

// Sweep removes every window that has expired at now and returns how many were removed.
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *RateLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for k, w := range l.entries {
		if !now.Before(w.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}

	if l.metrics != nil {
		l.metrics.Sweeps.Inc()
		l.metrics.SweptEntries.Add(float64(removed))
		l.metrics.TrackedKeys.Set(float64(len(l.entries)))
	}
	return removed
}
