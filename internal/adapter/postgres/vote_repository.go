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

type VoteRepo struct {
	pool *pgxpool.Pool
}

var _ domain.VoteRepository = (*VoteRepo)(nil)

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Insert relies on the (question_id, voter_token) unique constraint; a
// violation means the voter already voted and the stored vote stands.
// The row is only written while the question is active. FOR SHARE makes a
// concurrent close either wait for the vote or win and suppress it.
func (r *VoteRepo) Insert(ctx context.Context, questionID uuid.UUID, rating domain.Rating, voterToken string) (*domain.Vote, error) {
	v := domain.Vote{QuestionID: questionID, Rating: rating, VoterToken: voterToken}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO votes (question_id, rating, voter_token)
		 SELECT id, $2::smallint, $3::text FROM questions WHERE id = $1 AND is_active FOR SHARE
		 RETURNING id, created_at`,
		questionID, int16(rating), voterToken,
	).Scan(&v.ID, &v.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, r.inactiveQuestionError(ctx, questionID)
	case isPgError(err, pgUniqueViolation):
		return nil, domain.ErrDuplicateVote
	case isPgError(err, pgForeignKeyViolation):
		return nil, domain.ErrQuestionNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return &v, nil
}

// inactiveQuestionError tells a closed question from a missing one after a
// conditional insert wrote nothing.
func (r *VoteRepo) inactiveQuestionError(ctx context.Context, questionID uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)`, questionID).Scan(&exists)
	switch {
	case err != nil:
		return fmt.Errorf("failed to check question: %w", err)
	case !exists:
		return domain.ErrQuestionNotFound
	default:
		return domain.ErrVotingClosed
	}
}

func (r *VoteRepo) CountByRating(ctx context.Context, questionID uuid.UUID) (map[domain.Rating]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM votes WHERE question_id = $1 GROUP BY rating`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	counts := make(map[domain.Rating]int, domain.MaxRating)
	var (
		rating int16
		count  int
	)
	_, err = pgx.ForEachRow(rows, []any{&rating, &count}, func() error {
		counts[domain.Rating(rating)] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan vote counts: %w", err)
	}
	return counts, nil
}
