package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/domain"
)

const defaultSessionName = "Untitled session"

type tallyReader interface {
	GetTally(ctx context.Context, questionID uuid.UUID) (domain.TallySnapshot, error)
}

// LiveTally is a question together with its current tally.
type LiveTally struct {
	Question domain.Question
	Tally    domain.TallySnapshot
}

// Presenter serves the presenter collaborator: sessions, the question
// lifecycle and the read models of the live view, the summary and the dashboard.
type Presenter struct {
	sessions  domain.SessionRepository
	questions domain.QuestionRepository
	tally     tallyReader
	events    domain.VoteEventPublisher
}

func NewPresenter(sessions domain.SessionRepository, questions domain.QuestionRepository, tally tallyReader, events domain.VoteEventPublisher) *Presenter {
	return &Presenter{
		sessions:  sessions,
		questions: questions,
		tally:     tally,
		events:    events,
	}
}

func (p *Presenter) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	name = SanitizeInput(name)
	if strings.TrimSpace(name) == "" {
		name = defaultSessionName
	}

	session, err := p.sessions.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (p *Presenter) ListSessions(ctx context.Context) ([]domain.SessionOverview, error) {
	sessions, err := p.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ActivateQuestion opens text as the session's active question. Any question
// that was active in the session is closed in the same transaction, and its
// live viewers are notified.
func (p *Presenter) ActivateQuestion(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error) {
	text = SanitizeInput(text)
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuestionText
	}

	if _, err := p.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	previous, err := p.questions.ActiveForSession(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrQuestionNotFound) {
		return nil, fmt.Errorf("failed to look up active question: %w", err)
	}

	question, err := p.questions.Activate(ctx, sessionID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to activate question: %w", err)
	}

	if previous != nil {
		p.publishChange(ctx, previous.ID)
	}

	slog.InfoContext(ctx, "Question activated", "session_id", sessionID, "question_id", question.ID)
	return question, nil
}

// CloseVoting stops accepting votes for the question. Closing twice is not an error.
func (p *Presenter) CloseVoting(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	question, err := p.questions.Close(ctx, questionID)
	if err != nil {
		return nil, err
	}

	p.publishChange(ctx, questionID)

	slog.InfoContext(ctx, "Voting closed", "question_id", questionID)
	return question, nil
}

func (p *Presenter) GetQuestion(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	return p.questions.GetByID(ctx, questionID)
}

// ActiveQuestion returns the session's open question, or domain.ErrQuestionNotFound.
func (p *Presenter) ActiveQuestion(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error) {
	if _, err := p.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return p.questions.ActiveForSession(ctx, sessionID)
}

// LiveTally returns the question and its current tally.
func (p *Presenter) LiveTally(ctx context.Context, questionID uuid.UUID) (LiveTally, error) {
	question, err := p.questions.GetByID(ctx, questionID)
	if err != nil {
		return LiveTally{}, err
	}

	tally, err := p.tally.GetTally(ctx, questionID)
	if err != nil {
		return LiveTally{}, err
	}

	return LiveTally{Question: *question, Tally: tally}, nil
}

// SessionSummary returns every question of the session, oldest first, with its tally.
func (p *Presenter) SessionSummary(ctx context.Context, sessionID uuid.UUID) (*domain.Session, []domain.QuestionSummary, error) {
	session, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	questions, err := p.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list questions: %w", err)
	}

	summaries := make([]domain.QuestionSummary, 0, len(questions))
	for _, q := range questions {
		tally, err := p.tally.GetTally(ctx, q.ID)
		if err != nil {
			return nil, nil, err
		}
		summaries = append(summaries, domain.QuestionSummary{Question: q, Tally: tally})
	}

	return session, summaries, nil
}

func (p *Presenter) publishChange(ctx context.Context, questionID uuid.UUID) {
	if err := p.events.PublishVoteAccepted(ctx, questionID); err != nil {
		slog.WarnContext(ctx, "Failed to publish question change", "question_id", questionID, "error", err)
	}
}
