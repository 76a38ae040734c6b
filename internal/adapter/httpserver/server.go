// Package httpserver exposes vote ingestion, the question lifecycle and the
// live tally WebSocket over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/pscheid92/livepoll/internal/platform/config"
)

type voteService interface {
	SubmitVote(ctx context.Context, req app.VoteRequest) (domain.VoteResult, error)
}

type presenterService interface {
	CreateSession(ctx context.Context, name string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.SessionOverview, error)
	ActivateQuestion(ctx context.Context, sessionID uuid.UUID, text string) (*domain.Question, error)
	CloseVoting(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	GetQuestion(ctx context.Context, questionID uuid.UUID) (*domain.Question, error)
	ActiveQuestion(ctx context.Context, sessionID uuid.UUID) (*domain.Question, error)
	LiveTally(ctx context.Context, questionID uuid.UUID) (app.LiveTally, error)
	SessionSummary(ctx context.Context, sessionID uuid.UUID) (*domain.Session, []domain.QuestionSummary, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	votes     voteService
	presenter presenterService
	limiter   domain.RateLimiter

	websocketHandler http.Handler
	metricsHandler   http.Handler

	httpMetrics      *metrics.HTTPMetrics
	rateLimitMetrics *metrics.RateLimitMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// Option configures optional parts of the server.
type Option func(*Server)

func WithWebsocketHandler(h http.Handler) Option {
	return func(s *Server) { s.websocketHandler = h }
}

// WithMetrics serves /metrics from h and instruments requests and admissions.
func WithMetrics(h http.Handler, httpMetrics *metrics.HTTPMetrics, rateLimitMetrics *metrics.RateLimitMetrics) Option {
	return func(s *Server) {
		s.metricsHandler = h
		s.httpMetrics = httpMetrics
		s.rateLimitMetrics = rateLimitMetrics
	}
}

func WithHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) { s.healthChecks = checks }
}

func NewServer(cfg *config.Config, clock clockwork.Clock, votes voteService, presenter presenterService, limiter domain.RateLimiter, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler

	srv := &Server{
		echo:      e,
		config:    cfg,
		clock:     clock,
		votes:     votes,
		presenter: presenter,
		limiter:   limiter,
		startTime: clock.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// httpErrorHandler renders errors that bypass ErrorHandlingMiddleware, such as
// unmatched routes and oversized bodies, in the structured JSON shape.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		err = WrapHTTPError(httpErr)
	}
	if handleErr := HandleError(c, err); handleErr != nil {
		slog.Error("Failed to write error response", "error", handleErr)
	}
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
