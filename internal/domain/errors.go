package domain

import "errors"

var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrInvalidRating     = errors.New("rating must be an integer between 1 and 5")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrVotingClosed      = errors.New("voting is closed for this question")
	ErrDuplicateVote     = errors.New("vote already recorded for this question")
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyQuestionText = errors.New("question text cannot be empty")
	ErrStoreUnavailable  = errors.New("vote store unavailable")
)

// RejectionReason returns the stable client-facing code of a vote rejection,
// or "" if err is not one of the vote rejection errors.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFields):
		return "MissingFields"
	case errors.Is(err, ErrInvalidRating):
		return "InvalidRating"
	case errors.Is(err, ErrQuestionNotFound):
		return "QuestionNotFound"
	case errors.Is(err, ErrVotingClosed):
		return "VotingClosed"
	case errors.Is(err, ErrDuplicateVote):
		return "DuplicateVote"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	default:
		return ""
	}
}
