package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/platform/correlation"
)

const pushTimeout = 5 * time.Second

// TallySink delivers a live tally to the presenter views of a question.
type TallySink interface {
	PublishTally(ctx context.Context, live LiveTally) error
}

type liveTallyReader interface {
	LiveTally(ctx context.Context, questionID uuid.UUID) (LiveTally, error)
}

// TallyFeed keeps one notifier subscription per watched question and, on
// every debounced change, re-reads the tally and hands it to the sink.
type TallyFeed struct {
	reader   liveTallyReader
	notifier *Notifier
	sink     TallySink

	mu      sync.Mutex
	watches map[uuid.UUID]*watch
}

type watch struct {
	refs int
	sub  *Subscription
}

func NewTallyFeed(reader liveTallyReader, notifier *Notifier, sink TallySink) *TallyFeed {
	return &TallyFeed{
		reader:   reader,
		notifier: notifier,
		sink:     sink,
		watches:  make(map[uuid.UUID]*watch),
	}
}

// Snapshot returns the current live tally; viewers get it on subscribe.
func (f *TallyFeed) Snapshot(ctx context.Context, questionID uuid.UUID) (LiveTally, error) {
	return f.reader.LiveTally(ctx, questionID)
}

// Watch adds a viewer of questionID. The first viewer subscribes to the notifier.
func (f *TallyFeed) Watch(questionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w, ok := f.watches[questionID]; ok {
		w.refs++
		return
	}

	sub := f.notifier.Subscribe(questionID, func() { f.push(questionID) })
	f.watches[questionID] = &watch{refs: 1, sub: sub}
}

// Unwatch removes a viewer of questionID. The last viewer cancels any pending push.
func (f *TallyFeed) Unwatch(questionID uuid.UUID) {
	f.mu.Lock()
	w, ok := f.watches[questionID]
	if !ok {
		f.mu.Unlock()
		return
	}
	w.refs--
	if w.refs > 0 {
		f.mu.Unlock()
		return
	}
	delete(f.watches, questionID)
	f.mu.Unlock()

	w.sub.Unsubscribe()
}

// viewers returns the number of viewers of questionID.
func (f *TallyFeed) viewers(questionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.watches[questionID]; ok {
		return w.refs
	}
	return 0
}

// Close cancels every watch.
func (f *TallyFeed) Close() {
	f.mu.Lock()
	watches := f.watches
	f.watches = make(map[uuid.UUID]*watch)
	f.mu.Unlock()

	for _, w := range watches {
		w.sub.Unsubscribe()
	}
}

func (f *TallyFeed) push(questionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(correlation.WithID(context.Background(), correlation.NewID()), pushTimeout)
	defer cancel()

	live, err := f.reader.LiveTally(ctx, questionID)
	if err != nil {
		slog.WarnContext(ctx, "Live tally read failed", "question_id", questionID, "error", err)
		return
	}

	if err := f.sink.PublishTally(ctx, live); err != nil {
		slog.WarnContext(ctx, "Live tally publish failed", "question_id", questionID, "error", err)
		return
	}

	slog.DebugContext(ctx, "Live tally pushed", "question_id", questionID, "total_votes", live.Tally.TotalVotes)
}
