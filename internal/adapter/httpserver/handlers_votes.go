package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	apperrors "github.com/pscheid92/livepoll/internal/platform/errors"
)

func (s *Server) registerVoteRoutes() {
	s.echo.POST("/api/votes", s.handleSubmitVote, s.voteAdmission)
	s.echo.GET("/api/vote-options", s.handleVoteOptions)
}

// voteBody keeps rating raw so that strings and fractions reach validation
// and are reported as InvalidRating.
type voteBody struct {
	QuestionID       string `json:"questionId"`
	Rating           any    `json:"rating"`
	VoterFingerprint string `json:"voterFingerprint"`
}

func decodeVoteBody(r io.Reader) (voteBody, error) {
	var body voteBody
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return voteBody{}, err
	}
	return body, nil
}

func (s *Server) handleSubmitVote(c echo.Context) error {
	body, err := decodeVoteBody(c.Request().Body)
	if err != nil {
		return apperrors.ValidationError("request body must be a JSON object").WithReason("MissingFields")
	}

	result, err := s.votes.SubmitVote(c.Request().Context(), app.VoteRequest{
		QuestionID: body.QuestionID,
		Rating:     body.Rating,
		VoterToken: body.VoterFingerprint,
	})
	if err != nil {
		return voteError(err).WithField("question_id", body.QuestionID)
	}
	if result == domain.VoteDuplicate {
		return voteError(domain.ErrDuplicateVote).WithField("question_id", body.QuestionID)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"success": true}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVoteOptions(c echo.Context) error {
	if err := c.JSON(http.StatusOK, domain.VoteOptions()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
