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

// questionColumns must match the Scan order in scanQuestion.
const questionColumns = `id, session_id, text, is_active, created_at`

type QuestionRepo struct {
	pool *pgxpool.Pool
}

var _ domain.QuestionRepository = (*QuestionRepo)(nil)

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	if err := row.Scan(&q.ID, &q.SessionID, &q.Text, &q.IsActive, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question by ID: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) Activate(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Serialises activations of the same session.
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE questions SET is_active = FALSE WHERE session_id = $1 AND is_active`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to deactivate questions: %w", err)
	}

	q, err := scanQuestion(tx.QueryRow(ctx,
		`INSERT INTO questions (session_id, text) VALUES ($1, $2) RETURNING `+questionColumns,
		sessionID, text))
	if isPgError(err, pgForeignKeyViolation) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert question: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) Close(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`UPDATE questions SET is_active = FALSE WHERE id = $1 RETURNING `+questionColumns, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close question: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) ActiveForSession(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE session_id = $1 AND is_active`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active question: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Question, error) {
		q, err := scanQuestion(row)
		if err != nil {
			return domain.Question{}, err
		}
		return *q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan questions: %w", err)
	}
	return questions, nil
}
