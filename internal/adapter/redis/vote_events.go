package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const voteEventsChannel = "votes:accepted"

// VoteEvents publishes tally change events to every instance.
type VoteEvents struct {
	rdb *goredis.Client
}

var _ domain.VoteEventPublisher = (*VoteEvents)(nil)

func NewVoteEvents(rdb *goredis.Client) *VoteEvents {
	return &VoteEvents{rdb: rdb}
}

func (p *VoteEvents) PublishVoteAccepted(ctx context.Context, questionID uuid.UUID) error {
	if err := p.rdb.Publish(ctx, voteEventsChannel, questionID.String()).Err(); err != nil {
		return fmt.Errorf("failed to publish vote event: %w", err)
	}
	return nil
}

type changeNotifier interface {
	Notify(questionID uuid.UUID)
}

// VoteEventSubscriber feeds events from the shared channel, this instance's
// own included, into the local notifier.
type VoteEventSubscriber struct {
	rdb      *goredis.Client
	notifier changeNotifier
}

func NewVoteEventSubscriber(rdb *goredis.Client, notifier changeNotifier) *VoteEventSubscriber {
	return &VoteEventSubscriber{rdb: rdb, notifier: notifier}
}

// Start subscribes and blocks until ctx is done or the subscription closes.
// ready, if non-nil, is closed once the subscription is confirmed.
func (s *VoteEventSubscriber) Start(ctx context.Context, ready chan<- struct{}) {
	pubsub := s.rdb.Subscribe(ctx, voteEventsChannel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Error("Vote event subscription failed", "error", err)
		return
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *VoteEventSubscriber) handle(payload string) {
	questionID, err := uuid.Parse(payload)
	if err != nil {
		slog.Warn("Malformed vote event", "payload", payload)
		return
	}
	s.notifier.Notify(questionID)
}
