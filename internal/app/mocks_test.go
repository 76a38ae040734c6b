package app

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/domain"
)

var errStoreDown = errors.New("connection refused")

// --- Mock implementations ---

type mockQuestionRepo struct {
	getByIDFn          func(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	activateFn         func(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error)
	closeFn            func(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	activeForSessionFn func(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error)
	listBySessionFn    func(ctx context.Context, sessionID uuid.UUID) ([]domain.Question, error)
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, questionID)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockQuestionRepo) Activate(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error) {
	if m.activateFn != nil {
		return m.activateFn(ctx, sessionID, text)
	}
	return &domain.Question{ID: uuid.New(), SessionID: sessionID, Text: text, IsActive: true}, nil
}

func (m *mockQuestionRepo) Close(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	if m.closeFn != nil {
		return m.closeFn(ctx, questionID)
	}
	return &domain.Question{ID: questionID}, nil
}

func (m *mockQuestionRepo) ActiveForSession(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error) {
	if m.activeForSessionFn != nil {
		return m.activeForSessionFn(ctx, sessionID)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockQuestionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Question, error) {
	if m.listBySessionFn != nil {
		return m.listBySessionFn(ctx, sessionID)
	}
	return nil, nil
}

type mockVoteRepo struct {
	insertFn        func(ctx context.Context, questionID uuid.UUID, rating domain.Rating, voterToken string) (*domain.Vote, error)
	countByRatingFn func(ctx context.Context, questionID uuid.UUID) (map[domain.Rating]int, error)
}

func (m *mockVoteRepo) Insert(ctx context.Context, questionID uuid.UUID, rating domain.Rating, voterToken string) (*domain.Vote, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, questionID, rating, voterToken)
	}
	return &domain.Vote{ID: uuid.New(), QuestionID: questionID, Rating: rating, VoterToken: voterToken}, nil
}

func (m *mockVoteRepo) CountByRating(ctx context.Context, questionID uuid.UUID) (map[domain.Rating]int, error) {
	if m.countByRatingFn != nil {
		return m.countByRatingFn(ctx, questionID)
	}
	return map[domain.Rating]int{}, nil
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (p *recordingPublisher) PublishVoteAccepted(_ context.Context, questionID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, questionID)
	return p.err
}

func (p *recordingPublisher) published() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.ids...)
}

func activeQuestion(id uuid.UUID) *domain.Question {
	return &domain.Question{ID: id, SessionID: uuid.New(), Text: "Is this okay?", IsActive: true}
}
