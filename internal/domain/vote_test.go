package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating_Valid(t *testing.T) {
	for _, v := range []any{1, 5, int64(3), float64(2), 4.0, json.Number("5")} {
		r, err := ParseRating(v)
		require.NoError(t, err, "value %v", v)
		assert.GreaterOrEqual(t, int(r), MinRating)
		assert.LessOrEqual(t, int(r), MaxRating)
	}
}

func TestParseRating_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"zero", 0},
		{"six", 6},
		{"negative", -1},
		{"fraction", 2.5},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"string", "3"},
		{"bool", true},
		{"nil", nil},
		{"json number fraction", json.Number("1.1")},
		{"json number garbage", json.Number("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRating(tt.value)
			assert.ErrorIs(t, err, ErrInvalidRating)
		})
	}
}

func TestVoteOptions(t *testing.T) {
	opts := VoteOptions()
	require.Len(t, opts, 5)
	assert.Equal(t, "Totally Fine", opts[0].Label)
	assert.Equal(t, "Crosses Line", opts[4].Label)

	// returned slice is a copy
	opts[0].Label = "changed"
	assert.Equal(t, "Totally Fine", VoteOptions()[0].Label)
}

func TestVoteResult_String(t *testing.T) {
	assert.Equal(t, "accepted", VoteAccepted.String())
	assert.Equal(t, "duplicate", VoteDuplicate.String())
	assert.Equal(t, "rejected", VoteRejected.String())
	assert.Equal(t, "unknown", VoteResult(42).String())
}

func TestRateLimitKey(t *testing.T) {
	origin := RateLimitKey{Origin: "10.0.0.1"}
	voter := RateLimitKey{Origin: "10.0.0.1", VoterToken: "abc"}

	assert.Equal(t, "10.0.0.1", origin.String())
	assert.Equal(t, "10.0.0.1:abc", voter.String())
	assert.False(t, origin.PerVoter())
	assert.True(t, voter.PerVoter())

	assert.Equal(t, 1000, DefaultRateLimitPolicy.Limit(origin))
	assert.Equal(t, 10, DefaultRateLimitPolicy.Limit(voter))
}

func TestRateLimitDecision_Remaining(t *testing.T) {
	assert.Equal(t, 7, RateLimitDecision{Count: 3, Limit: 10}.Remaining())
	assert.Equal(t, 0, RateLimitDecision{Count: 11, Limit: 10}.Remaining())
}
