package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/pscheid92/livepoll/internal/platform/config"
)

var errNotImplemented = errors.New("not implemented")

type mockVoteService struct {
	submitVoteFn func(ctx context.Context, req app.VoteRequest) (domain.VoteResult, error)
}

func (m *mockVoteService) SubmitVote(ctx context.Context, req app.VoteRequest) (domain.VoteResult, error) {
	if m.submitVoteFn != nil {
		return m.submitVoteFn(ctx, req)
	}
	return domain.VoteAccepted, nil
}

type mockPresenter struct {
	createSessionFn    func(ctx context.Context, name string) (*domain.Session, error)
	listSessionsFn     func(ctx context.Context) ([]domain.SessionOverview, error)
	activateQuestionFn func(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error)
	closeVotingFn      func(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	getQuestionFn      func(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	activeQuestionFn   func(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error)
	liveTallyFn        func(ctx context.Context, questionID uuid.UUID) (app.LiveTally, error)
	sessionSummaryFn   func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, []domain.QuestionSummary, error)
}

func (m *mockPresenter) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, name)
	}
	return nil, errNotImplemented
}

func (m *mockPresenter) ListSessions(ctx context.Context) ([]domain.SessionOverview, error) {
	if m.listSessionsFn != nil {
		return m.listSessionsFn(ctx)
	}
	return nil, nil
}

func (m *mockPresenter) ActivateQuestion(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error) {
	if m.activateQuestionFn != nil {
		return m.activateQuestionFn(ctx, sessionID, text)
	}
	return nil, errNotImplemented
}

func (m *mockPresenter) CloseVoting(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	if m.closeVotingFn != nil {
		return m.closeVotingFn(ctx, questionID)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockPresenter) GetQuestion(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	if m.getQuestionFn != nil {
		return m.getQuestionFn(ctx, questionID)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockPresenter) ActiveQuestion(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error) {
	if m.activeQuestionFn != nil {
		return m.activeQuestionFn(ctx, sessionID)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockPresenter) LiveTally(ctx context.Context, questionID uuid.UUID) (app.LiveTally, error) {
	if m.liveTallyFn != nil {
		return m.liveTallyFn(ctx, questionID)
	}
	return app.LiveTally{}, domain.ErrQuestionNotFound
}

func (m *mockPresenter) SessionSummary(ctx context.Context, sessionID uuid.UUID) (*domain.Session, []domain.QuestionSummary, error) {
	if m.sessionSummaryFn != nil {
		return m.sessionSummaryFn(ctx, sessionID)
	}
	return nil, nil, domain.ErrSessionNotFound
}

// mockLimiter admits everything unless admitFn is set.
type mockLimiter struct {
	admitFn func(ctx context.Context, key domain.RateLimitKey, now time.Time) (domain.RateLimitDecision, error)
	keys    []domain.RateLimitKey
}

func (m *mockLimiter) Admit(ctx context.Context, key domain.RateLimitKey, now time.Time) (domain.RateLimitDecision, error) {
	m.keys = append(m.keys, key)
	if m.admitFn != nil {
		return m.admitFn(ctx, key, now)
	}
	return domain.RateLimitDecision{Allowed: true, Count: 1, Limit: 10, ResetAt: now.Add(time.Minute)}, nil
}

// --- Test helpers ---

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		Port:             "0",
		AppURL:           "http://localhost:8080",
		APIRatePerSecond: 1000,
		APIRateBurst:     1000,
	}
}

type testServerDeps struct {
	votes     *mockVoteService
	presenter *mockPresenter
	limiter   *mockLimiter
	clock     *clockwork.FakeClock
}

func newTestServer(t *testing.T, deps testServerDeps, opts ...Option) *Server {
	t.Helper()

	if deps.votes == nil {
		deps.votes = &mockVoteService{}
	}
	if deps.presenter == nil {
		deps.presenter = &mockPresenter{}
	}
	if deps.limiter == nil {
		deps.limiter = &mockLimiter{}
	}
	if deps.clock == nil {
		deps.clock = clockwork.NewFakeClockAt(testStart)
	}

	return NewServer(testConfig(), deps.clock, deps.votes, deps.presenter, deps.limiter, opts...)
}

func doRequest(srv *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = testRemoteAddr
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
