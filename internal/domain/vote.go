package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is a validated vote value in [MinRating, MaxRating].
type Rating int

// ParseRating accepts the loosely typed rating of a decoded request and returns
// it as a Rating. Anything that is not an integral number in range is
// ErrInvalidRating.
func ParseRating(v any) (Rating, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, ErrInvalidRating
		}
		f = parsed
	default:
		return 0, ErrInvalidRating
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrInvalidRating
	}
	if f < MinRating || f > MaxRating {
		return 0, ErrInvalidRating
	}
	return Rating(f), nil
}

// VoteOption is the audience-facing label of a rating.
type VoteOption struct {
	Rating Rating `json:"rating"`
	Label  string `json:"label"`
}

var voteOptions = []VoteOption{
	{Rating: 1, Label: "Totally Fine"},
	{Rating: 2, Label: "Mostly Okay"},
	{Rating: 3, Label: "Not Sure"},
	{Rating: 4, Label: "Feels Sketchy"},
	{Rating: 5, Label: "Crosses Line"},
}

// VoteOptions returns the rating labels in ascending rating order.
func VoteOptions() []VoteOption {
	out := make([]VoteOption, len(voteOptions))
	copy(out, voteOptions)
	return out
}

type Vote struct {
	ID         uuid.UUID
	QuestionID uuid.UUID
	Rating     Rating
	VoterToken string
	CreatedAt  time.Time
}

// VoteResult describes the terminal outcome of a vote submission.
type VoteResult int

const (
	VoteAccepted  VoteResult = iota // Vote was stored
	VoteDuplicate                   // Voter already voted on this question; first vote stands
	VoteRejected                    // Validation, state or store failure; see the returned error
)

func (r VoteResult) String() string {
	switch r {
	case VoteAccepted:
		return "accepted"
	case VoteDuplicate:
		return "duplicate"
	case VoteRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// VoteRepository is the vote store. Insert must enforce uniqueness of
// (QuestionID, VoterToken) atomically and report a violation as ErrDuplicateVote.
// It must also refuse, in the same atomic step, a vote on a question that is
// no longer active, reporting ErrVotingClosed.
type VoteRepository interface {
	Insert(ctx context.Context, questionID uuid.UUID, rating Rating, voterToken string) (*Vote, error)
	CountByRating(ctx context.Context, questionID uuid.UUID) (map[Rating]int, error)
}
