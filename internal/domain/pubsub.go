package domain

import (
	"context"

	"github.com/google/uuid"
)

// VoteEventPublisher announces that a question's tally (or state) changed.
// Implementations fan the event out to every process that may hold live
// subscribers for the question.
type VoteEventPublisher interface {
	PublishVoteAccepted(ctx context.Context, questionID uuid.UUID) error
}
