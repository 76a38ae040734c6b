package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTally_EmptyQuestion(t *testing.T) {
	qid := uuid.New()
	tally := NewTally(&mockVoteRepo{}, clockwork.NewFakeClock(), nil)

	snap, err := tally.GetTally(context.Background(), qid)

	require.NoError(t, err)
	assert.Equal(t, qid, snap.QuestionID)
	assert.Equal(t, 0, snap.TotalVotes)
	for r := domain.Rating(domain.MinRating); r <= domain.MaxRating; r++ {
		assert.Equal(t, 0, snap.Percentage(r))
	}
}

func TestGetTally_Counts(t *testing.T) {
	votes := &mockVoteRepo{
		countByRatingFn: func(context.Context, uuid.UUID) (map[domain.Rating]int, error) {
			return map[domain.Rating]int{1: 1, 2: 1, 3: 1}, nil
		},
	}
	tally := NewTally(votes, clockwork.NewFakeClock(), nil)

	snap, err := tally.GetTally(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, 3, snap.TotalVotes)
	assert.Equal(t, 33, snap.Percentage(1))
	assert.Equal(t, 0, snap.Percentage(4))
}

func TestGetTally_StoreFailure(t *testing.T) {
	votes := &mockVoteRepo{
		countByRatingFn: func(context.Context, uuid.UUID) (map[domain.Rating]int, error) {
			return nil, errStoreDown
		},
	}
	tally := NewTally(votes, clockwork.NewFakeClock(), nil)

	_, err := tally.GetTally(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestGetTally_ConcurrentReadsShareQuery(t *testing.T) {
	release := make(chan struct{})
	var queries atomic.Int64
	votes := &mockVoteRepo{
		countByRatingFn: func(context.Context, uuid.UUID) (map[domain.Rating]int, error) {
			queries.Add(1)
			<-release
			return map[domain.Rating]int{4: 2}, nil
		},
	}
	tally := NewTally(votes, clockwork.NewFakeClock(), nil)
	qid := uuid.New()

	var wg sync.WaitGroup
	results := make([]domain.TallySnapshot, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = tally.GetTally(context.Background(), qid)
		}()
	}

	require.Eventually(t, func() bool { return queries.Load() >= 1 }, waitFor, tick)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, queries.Load(), int64(10))
	for _, snap := range results {
		assert.Equal(t, 2, snap.TotalVotes)
	}
}

func TestGetTally_ReadAfterAcceptedVoteIncludesIt(t *testing.T) {
	var stored atomic.Int64
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	votes := &mockVoteRepo{
		countByRatingFn: func(context.Context, uuid.UUID) (map[domain.Rating]int, error) {
			n := int(stored.Load())
			started <- struct{}{}
			<-release
			return map[domain.Rating]int{3: n}, nil
		},
	}
	tally := NewTally(votes, clockwork.NewFakeClock(), nil)
	qid := uuid.New()

	first := make(chan domain.TallySnapshot, 1)
	go func() {
		snap, _ := tally.GetTally(context.Background(), qid)
		first <- snap
	}()
	<-started

	// A vote is accepted while the first count is still in flight.
	stored.Store(1)

	second := make(chan domain.TallySnapshot, 1)
	go func() {
		snap, _ := tally.GetTally(context.Background(), qid)
		second <- snap
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Equal(t, 0, (<-first).TotalVotes)
	snap := <-second
	assert.Equal(t, 1, snap.TotalVotes)
	assert.Equal(t, 100, snap.Percentage(3))
}

func TestGetTally_CancelledCallerDoesNotFailOthers(t *testing.T) {
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	votes := &mockVoteRepo{
		countByRatingFn: func(ctx context.Context, _ uuid.UUID) (map[domain.Rating]int, error) {
			entered <- struct{}{}
			select {
			case <-release:
				return map[domain.Rating]int{5: 2}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	tally := NewTally(votes, clockwork.NewFakeClock(), nil)
	qid := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := tally.GetTally(ctx, qid)
		firstErr <- err
	}()
	<-entered

	type result struct {
		snap domain.TallySnapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := tally.GetTally(context.Background(), qid)
		second <- result{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	err := <-firstErr
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.snap.TotalVotes)
	assert.Equal(t, 100, res.snap.Percentage(5))
}
