package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/livepoll/internal/app"
	apperrors "github.com/pscheid92/livepoll/internal/platform/errors"
)

func (s *Server) registerPresenterRoutes(limiter echo.MiddlewareFunc) {
	api := s.echo.Group("/api", limiter)

	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id/summary", s.handleSessionSummary)
	api.GET("/sessions/:id/active", s.handleActiveQuestion)
	api.POST("/sessions/:id/questions", s.handleActivateQuestion)

	api.GET("/questions/:id", s.handleGetQuestion)
	api.GET("/questions/:id/tally", s.handleGetTally)
	api.POST("/questions/:id/close", s.handleCloseVoting)
}

// pathID parses the :id route parameter. A malformed id cannot name an
// existing resource, so it is reported as notFound.
func pathID(c echo.Context, notFound string) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NotFoundError(notFound).WithField("id", raw)
	}
	return id, nil
}

func respond(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type createSessionBody struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var body createSessionBody
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	session, err := s.presenter.CreateSession(c.Request().Context(), body.Name)
	if err != nil {
		return lookupError(err, "create session")
	}
	return respond(c, http.StatusCreated, app.NewSessionView(*session))
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.presenter.ListSessions(c.Request().Context())
	if err != nil {
		return lookupError(err, "list sessions")
	}
	return respond(c, http.StatusOK, app.NewSessionOverviewViews(sessions))
}

func (s *Server) handleSessionSummary(c echo.Context) error {
	sessionID, err := pathID(c, "session not found")
	if err != nil {
		return err
	}

	session, summaries, err := s.presenter.SessionSummary(c.Request().Context(), sessionID)
	if err != nil {
		return lookupError(err, "load session summary").WithField("session_id", sessionID.String())
	}
	return respond(c, http.StatusOK, app.NewSummaryView(*session, summaries))
}

func (s *Server) handleActiveQuestion(c echo.Context) error {
	sessionID, err := pathID(c, "session not found")
	if err != nil {
		return err
	}

	q, err := s.presenter.ActiveQuestion(c.Request().Context(), sessionID)
	if err != nil {
		return lookupError(err, "load active question").WithField("session_id", sessionID.String())
	}
	return respond(c, http.StatusOK, app.NewQuestionView(*q))
}

type activateQuestionBody struct {
	Text string `json:"text"`
}

func (s *Server) handleActivateQuestion(c echo.Context) error {
	sessionID, err := pathID(c, "session not found")
	if err != nil {
		return err
	}

	var body activateQuestionBody
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	q, err := s.presenter.ActivateQuestion(c.Request().Context(), sessionID, body.Text)
	if err != nil {
		return lookupError(err, "activate question").WithField("session_id", sessionID.String())
	}
	return respond(c, http.StatusCreated, app.NewQuestionView(*q))
}

func (s *Server) handleGetQuestion(c echo.Context) error {
	questionID, err := pathID(c, "question not found")
	if err != nil {
		return err
	}

	q, err := s.presenter.GetQuestion(c.Request().Context(), questionID)
	if err != nil {
		return lookupError(err, "load question").WithField("question_id", questionID.String())
	}
	return respond(c, http.StatusOK, app.NewQuestionView(*q))
}

func (s *Server) handleGetTally(c echo.Context) error {
	questionID, err := pathID(c, "question not found")
	if err != nil {
		return err
	}

	live, err := s.presenter.LiveTally(c.Request().Context(), questionID)
	if err != nil {
		return lookupError(err, "load tally").WithField("question_id", questionID.String())
	}
	return respond(c, http.StatusOK, live.View())
}

func (s *Server) handleCloseVoting(c echo.Context) error {
	questionID, err := pathID(c, "question not found")
	if err != nil {
		return err
	}

	q, err := s.presenter.CloseVoting(c.Request().Context(), questionID)
	if err != nil {
		return lookupError(err, "close voting").WithField("question_id", questionID.String())
	}
	return respond(c, http.StatusOK, app.NewQuestionView(*q))
}
