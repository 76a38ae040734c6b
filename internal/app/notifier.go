package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
)

const DefaultQuietPeriod = 2 * time.Second

// Notifier is a trailing debouncer keyed by question. Each Notify for a
// question with subscribers (re)arms that question's single timer; when the
// timer survives a full quiet period, every current subscription of the
// question is called once.
type Notifier struct {
	clock       clockwork.Clock
	quietPeriod time.Duration
	metrics     *metrics.LiveMetrics

	mu      sync.Mutex
	nextID  uint64
	gen     uint64
	subs    map[uuid.UUID]map[uint64]*Subscription
	pending map[uuid.UUID]pendingFire
	closed  bool
}

type pendingFire struct {
	timer clockwork.Timer
	gen   uint64
}

// NewNotifier creates a notifier with the given quiet period. liveMetrics may be nil.
func NewNotifier(clock clockwork.Clock, quietPeriod time.Duration, liveMetrics *metrics.LiveMetrics) *Notifier {
	if quietPeriod <= 0 {
		quietPeriod = DefaultQuietPeriod
	}
	return &Notifier{
		clock:       clock,
		quietPeriod: quietPeriod,
		metrics:     liveMetrics,
		subs:        make(map[uuid.UUID]map[uint64]*Subscription),
		pending:     make(map[uuid.UUID]pendingFire),
	}
}

// Subscription is a registered change callback for one question.
type Subscription struct {
	id         uint64
	questionID uuid.UUID
	notifier   *Notifier
	onChange   func()

	// mu serialises delivery against Unsubscribe.
	mu        sync.Mutex
	cancelled bool
	once      sync.Once
}

// QuestionID returns the question the subscription watches.
func (s *Subscription) QuestionID() uuid.UUID {
	return s.questionID
}

// Subscribe registers onChange for questionID. onChange runs on a timer
// goroutine and must not call Unsubscribe on its own subscription.
func (n *Notifier) Subscribe(questionID uuid.UUID, onChange func()) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := &Subscription{
		id:         n.nextID,
		questionID: questionID,
		notifier:   n,
		onChange:   onChange,
	}

	byID, ok := n.subs[questionID]
	if !ok {
		byID = make(map[uint64]*Subscription)
		n.subs[questionID] = byID
	}
	byID[sub.id] = sub

	if n.metrics != nil {
		n.metrics.ActiveSubscriptions.Inc()
	}
	return sub
}

// Unsubscribe removes the subscription. When it returns, the callback is not
// running and will not run again. Safe to call more than once and
// concurrently with a firing timer.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.notifier.remove(s)

		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}
	s.onChange()
}

func (n *Notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	byID := n.subs[sub.questionID]
	if _, ok := byID[sub.id]; !ok {
		return
	}
	delete(byID, sub.id)
	if n.metrics != nil {
		n.metrics.ActiveSubscriptions.Dec()
	}

	if len(byID) > 0 {
		return
	}
	delete(n.subs, sub.questionID)

	// Nobody is left to notify.
	if p, ok := n.pending[sub.questionID]; ok {
		p.timer.Stop()
		delete(n.pending, sub.questionID)
		n.updatePendingGauge()
	}
}

// Notify records a change for questionID. Questions without subscribers are
// ignored; newcomers read a fresh snapshot when they subscribe.
func (n *Notifier) Notify(questionID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.metrics != nil {
		n.metrics.EventsReceived.Inc()
	}
	if n.closed || len(n.subs[questionID]) == 0 {
		return
	}

	if p, ok := n.pending[questionID]; ok {
		p.timer.Stop()
	}

	n.gen++
	gen := n.gen
	timer := n.clock.AfterFunc(n.quietPeriod, func() { n.fire(questionID, gen) })
	n.pending[questionID] = pendingFire{timer: timer, gen: gen}
	n.updatePendingGauge()
}

// PublishVoteAccepted lets the notifier serve as the single-instance event
// publisher.
func (n *Notifier) PublishVoteAccepted(_ context.Context, questionID uuid.UUID) error {
	n.Notify(questionID)
	return nil
}

func (n *Notifier) fire(questionID uuid.UUID, gen uint64) {
	n.mu.Lock()
	p, ok := n.pending[questionID]
	if !ok || p.gen != gen {
		// Superseded by a later Notify whose Stop lost the race.
		n.mu.Unlock()
		return
	}
	delete(n.pending, questionID)
	n.updatePendingGauge()

	subs := make([]*Subscription, 0, len(n.subs[questionID]))
	for _, sub := range n.subs[questionID] {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	if n.metrics != nil {
		n.metrics.NotificationsFired.Inc()
	}
	for _, sub := range subs {
		sub.deliver()
	}
}

// isPending reports whether a notification is scheduled for questionID.
func (n *Notifier) isPending(questionID uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.pending[questionID]
	return ok
}

// Close stops all scheduled notifications. Later Notify calls are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for id, p := range n.pending {
		p.timer.Stop()
		delete(n.pending, id)
	}
	n.updatePendingGauge()
}

func (n *Notifier) updatePendingGauge() {
	if n.metrics != nil {
		n.metrics.PendingTimers.Set(float64(len(n.pending)))
	}
}
