package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/domain"
)

// VoteRequest is a raw vote attempt as decoded from the caller. Rating is
// left untyped so that non-integer input is reported as an invalid rating
// rather than a decoding failure.
type VoteRequest struct {
	QuestionID string
	Rating     any
	VoterToken string
}

// Ingestion turns vote attempts into stored votes or well-defined rejections.
type Ingestion struct {
	questions domain.QuestionRepository
	votes     domain.VoteRepository
	events    domain.VoteEventPublisher
	clock     clockwork.Clock
	metrics   *metrics.VoteMetrics
}

// NewIngestion creates the vote ingestion service. voteMetrics may be nil.
func NewIngestion(questions domain.QuestionRepository, votes domain.VoteRepository, events domain.VoteEventPublisher, clock clockwork.Clock, voteMetrics *metrics.VoteMetrics) *Ingestion {
	return &Ingestion{
		questions: questions,
		votes:     votes,
		events:    events,
		clock:     clock,
		metrics:   voteMetrics,
	}
}

// SubmitVote validates and stores a single vote.
//
// Validation short-circuits in order: missing fields, invalid rating, unknown
// question, closed question. A repeated vote by the same token returns
// VoteDuplicate with a nil error; the first stored rating is kept. Store
// failures wrap domain.ErrStoreUnavailable and are not retried.
func (i *Ingestion) SubmitVote(ctx context.Context, req VoteRequest) (domain.VoteResult, error) {
	start := i.clock.Now()
	result, rating, err := i.submit(ctx, req)
	i.observe(result, rating, err, i.clock.Since(start).Seconds())
	return result, err
}

func (i *Ingestion) submit(ctx context.Context, req VoteRequest) (domain.VoteResult, domain.Rating, error) {
	rawQuestionID := strings.TrimSpace(req.QuestionID)
	token := SanitizeInput(req.VoterToken)
	if rawQuestionID == "" || isBlank(req.Rating) || strings.TrimSpace(token) == "" {
		return domain.VoteRejected, 0, domain.ErrMissingFields
	}

	rating, err := domain.ParseRating(req.Rating)
	if err != nil {
		return domain.VoteRejected, 0, err
	}

	questionID, err := uuid.Parse(rawQuestionID)
	if err != nil {
		return domain.VoteRejected, rating, domain.ErrQuestionNotFound
	}

	question, err := i.questions.GetByID(ctx, questionID)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.VoteRejected, rating, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.VoteRejected, rating, fmt.Errorf("%w: question lookup: %w", domain.ErrStoreUnavailable, err)
	}
	if !question.IsActive {
		return domain.VoteRejected, rating, domain.ErrVotingClosed
	}

	// The store re-checks the active flag; a close may land after the lookup.
	_, err = i.votes.Insert(ctx, questionID, rating, token)
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		slog.DebugContext(ctx, "Duplicate vote ignored", "question_id", questionID)
		return domain.VoteDuplicate, rating, nil
	case errors.Is(err, domain.ErrVotingClosed), errors.Is(err, domain.ErrQuestionNotFound):
		return domain.VoteRejected, rating, err
	}
	if err != nil {
		return domain.VoteRejected, rating, fmt.Errorf("%w: insert vote: %w", domain.ErrStoreUnavailable, err)
	}

	// The vote is durable at this point; a lost event only delays the live view.
	if err := i.events.PublishVoteAccepted(ctx, questionID); err != nil {
		slog.WarnContext(ctx, "Failed to publish vote event", "question_id", questionID, "error", err)
	}

	return domain.VoteAccepted, rating, nil
}

func (i *Ingestion) observe(result domain.VoteResult, rating domain.Rating, err error, seconds float64) {
	if i.metrics == nil {
		return
	}

	label := result.String()
	if reason := domain.RejectionReason(err); reason != "" {
		label = reason
	}
	i.metrics.VotesProcessed.WithLabelValues(label).Inc()
	i.metrics.ProcessingDuration.Observe(seconds)

	if result == domain.VoteAccepted {
		i.metrics.VotesByRating.WithLabelValues(strconv.Itoa(int(rating))).Inc()
	}
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
