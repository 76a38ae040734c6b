package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/livepoll/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, name string) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (name) VALUES ($1) RETURNING id, name, created_at`,
		name,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by ID: %w", err)
	}
	return &s, nil
}

const listSessionsSQL = `
SELECT s.id, s.name, s.created_at,
       COUNT(DISTINCT q.id) AS question_count,
       COUNT(v.id)          AS total_votes
FROM sessions s
LEFT JOIN questions q ON q.session_id = s.id
LEFT JOIN votes v ON v.question_id = q.id
GROUP BY s.id
ORDER BY s.created_at DESC, s.id`

func (r *SessionRepo) List(ctx context.Context) ([]domain.SessionOverview, error) {
	rows, err := r.pool.Query(ctx, listSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	overviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SessionOverview, error) {
		var o domain.SessionOverview
		err := row.Scan(&o.Session.ID, &o.Session.Name, &o.Session.CreatedAt, &o.QuestionCount, &o.TotalVotes)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return overviews, nil
}
