package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/domain"
	"golang.org/x/sync/singleflight"
)

const tallyReadTimeout = 5 * time.Second

// Tally reads per-question rating distributions from the vote store.
// Concurrent calls for the same question share one query, but a caller only
// accepts the result of a query that started after the caller arrived, so a
// tally never misses a vote accepted before GetTally was called.
type Tally struct {
	votes   domain.VoteRepository
	group   singleflight.Group
	reads   atomic.Uint64
	clock   clockwork.Clock
	metrics *metrics.LiveMetrics
}

type tallyRead struct {
	snapshot domain.TallySnapshot
	seq      uint64
}

// NewTally creates the tally aggregator. liveMetrics may be nil.
func NewTally(votes domain.VoteRepository, clock clockwork.Clock, liveMetrics *metrics.LiveMetrics) *Tally {
	return &Tally{votes: votes, clock: clock, metrics: liveMetrics}
}

// GetTally returns the current snapshot for questionID. A question without
// votes yields an empty snapshot. The shared query is not cancelled with ctx;
// a cancelled caller stops waiting and the others still get the result.
func (t *Tally) GetTally(ctx context.Context, questionID uuid.UUID) (domain.TallySnapshot, error) {
	arrived := t.reads.Load()
	key := questionID.String()

	for {
		ch := t.group.DoChan(key, func() (any, error) {
			return t.read(ctx, questionID)
		})

		select {
		case <-ctx.Done():
			return domain.TallySnapshot{}, fmt.Errorf("%w: count votes: %w", domain.ErrStoreUnavailable, ctx.Err())
		case res := <-ch:
			read := res.Val.(tallyRead)
			if read.seq <= arrived {
				// Joined a query that was already running; the finished
				// flight is gone, so the next one starts after us.
				continue
			}
			if res.Err != nil {
				return domain.TallySnapshot{}, res.Err
			}
			return read.snapshot, nil
		}
	}
}

func (t *Tally) read(ctx context.Context, questionID uuid.UUID) (any, error) {
	seq := t.reads.Add(1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tallyReadTimeout)
	defer cancel()

	start := t.clock.Now()
	counts, err := t.votes.CountByRating(ctx, questionID)
	if t.metrics != nil {
		t.metrics.TallyReadDuration.Observe(t.clock.Since(start).Seconds())
	}
	if err != nil {
		return tallyRead{seq: seq}, fmt.Errorf("%w: count votes: %w", domain.ErrStoreUnavailable, err)
	}
	return tallyRead{snapshot: domain.NewTallySnapshot(questionID, counts), seq: seq}, nil
}
