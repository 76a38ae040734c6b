package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	settle  = 50 * time.Millisecond
)

func counter(calls *atomic.Int64) func() {
	return func() { calls.Add(1) }
}

func TestNotifier_CoalescesBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, 2*time.Second, nil)
	qid := uuid.New()

	var calls atomic.Int64
	n.Subscribe(qid, counter(&calls))

	for range 5 {
		n.Notify(qid)
		clock.Advance(500 * time.Millisecond)
	}
	assert.True(t, n.isPending(qid))
	assert.Never(t, func() bool { return calls.Load() > 0 }, settle, tick)

	clock.Advance(1500 * time.Millisecond)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.False(t, n.isPending(qid))
	assert.Never(t, func() bool { return calls.Load() > 1 }, settle, tick)
}

func TestNotifier_FiresAgainAfterQuietPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, 2*time.Second, nil)
	qid := uuid.New()

	var calls atomic.Int64
	n.Subscribe(qid, counter(&calls))

	n.Notify(qid)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	n.Notify(qid)
	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestNotifier_IgnoresQuestionsWithoutSubscribers(t *testing.T) {
	n := NewNotifier(clockwork.NewFakeClock(), 0, nil)
	qid := uuid.New()

	n.Notify(qid)

	assert.False(t, n.isPending(qid))
}

func TestNotifier_QuestionsAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, 2*time.Second, nil)
	q1, q2 := uuid.New(), uuid.New()

	var calls1, calls2 atomic.Int64
	n.Subscribe(q1, counter(&calls1))
	n.Subscribe(q2, counter(&calls2))

	n.Notify(q1)
	clock.Advance(time.Second)
	n.Notify(q2)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return calls1.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int64(0), calls2.Load())
	assert.True(t, n.isPending(q2))

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return calls2.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int64(1), calls1.Load())
}

func TestNotifier_EverySubscriberCalledOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, time.Second, nil)
	qid := uuid.New()

	var a, b atomic.Int64
	n.Subscribe(qid, counter(&a))
	n.Subscribe(qid, counter(&b))

	n.Notify(qid)
	n.Notify(qid)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, waitFor, tick)
}

func TestNotifier_UnsubscribeCancelsPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, 2*time.Second, nil)
	qid := uuid.New()

	var calls atomic.Int64
	sub := n.Subscribe(qid, counter(&calls))
	assert.Equal(t, qid, sub.QuestionID())

	n.Notify(qid)
	require.True(t, n.isPending(qid))

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.False(t, n.isPending(qid))

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, settle, tick)
}

func TestNotifier_UnsubscribeOneKeepsOthers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, time.Second, nil)
	qid := uuid.New()

	var gone, stays atomic.Int64
	sub := n.Subscribe(qid, counter(&gone))
	n.Subscribe(qid, counter(&stays))

	n.Notify(qid)
	sub.Unsubscribe()
	assert.True(t, n.isPending(qid))

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return stays.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int64(0), gone.Load())
}

func TestNotifier_CloseStopsEverything(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, time.Second, nil)
	qid := uuid.New()

	var calls atomic.Int64
	n.Subscribe(qid, counter(&calls))
	n.Notify(qid)

	n.Close()
	n.Notify(qid)
	assert.False(t, n.isPending(qid))

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, settle, tick)
}

func TestNotifier_PublishVoteAccepted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, time.Second, nil)
	qid := uuid.New()
	n.Subscribe(qid, func() {})

	require.NoError(t, n.PublishVoteAccepted(context.Background(), qid))
	assert.True(t, n.isPending(qid))
}

func TestNotifier_Metrics(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := metrics.NewLiveMetrics(prometheus.NewRegistry())
	n := NewNotifier(clock, time.Second, m)
	qid := uuid.New()

	var calls atomic.Int64
	sub := n.Subscribe(qid, counter(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSubscriptions))

	n.Notify(qid)
	n.Notify(qid)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PendingTimers))

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFired))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PendingTimers))

	sub.Unsubscribe()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSubscriptions))
}
