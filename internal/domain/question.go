package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Text      string
	IsActive  bool
	CreatedAt time.Time
}

// QuestionSummary pairs a question with its tally for the session summary view.
type QuestionSummary struct {
	Question Question
	Tally    TallySnapshot
}

type QuestionRepository interface {
	GetByID(ctx context.Context, questionID uuid.UUID) (*Question, error)

	// Activate deactivates the session's current active question (if any) and
	// inserts a new active one in a single transaction.
	Activate(ctx context.Context, sessionID uuid.UUID, text string) (*Question, error)

	// Close flips is_active to false. Closing an already closed question is a no-op.
	Close(ctx context.Context, questionID uuid.UUID) (*Question, error)

	ActiveForSession(ctx context.Context, sessionID uuid.UUID) (*Question, error)

	// ListBySession returns the session's questions, oldest first.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Question, error)
}
