package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// SessionOverview is a dashboard row: a session with its aggregate activity.
type SessionOverview struct {
	Session       Session
	QuestionCount int
	TotalVotes    int
}

type SessionRepository interface {
	Create(ctx context.Context, name string) (*Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	// List returns all sessions, newest first.
	List(ctx context.Context) ([]SessionOverview, error)
}
