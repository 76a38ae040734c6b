package domain

import (
	"math"

	"github.com/google/uuid"
)

// TallySnapshot is the rating distribution of a question at read time.
// Counts is indexed by rating; index 0 is unused.
type TallySnapshot struct {
	QuestionID uuid.UUID
	TotalVotes int
	Counts     [MaxRating + 1]int
}

// NewTallySnapshot builds a snapshot from per-rating counts, ignoring
// ratings outside the valid range.
func NewTallySnapshot(questionID uuid.UUID, counts map[Rating]int) TallySnapshot {
	s := TallySnapshot{QuestionID: questionID}
	for r, n := range counts {
		if r < MinRating || r > MaxRating {
			continue
		}
		s.Counts[r] = n
		s.TotalVotes += n
	}
	return s
}

// Count returns the number of votes for a rating.
func (s TallySnapshot) Count(r Rating) int {
	if r < MinRating || r > MaxRating {
		return 0
	}
	return s.Counts[r]
}

// Percentage returns the rounded share of votes for a rating.
func (s TallySnapshot) Percentage(r Rating) int {
	return Percentage(s.Count(r), s.TotalVotes)
}

// Percentage computes round(100*count/total) with halves rounded away from
// zero. A zero total yields 0. Per-option results are not normalised, so they
// may sum to 99..101.
func Percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
