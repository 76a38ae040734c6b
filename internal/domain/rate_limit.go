package domain

import (
	"context"
	"time"
)

// RateLimitKey identifies the requester for admission control. VoterToken is
// empty for origin-only keys.
type RateLimitKey struct {
	Origin     string
	VoterToken string
}

// String returns the storage key: "origin" or "origin:token".
func (k RateLimitKey) String() string {
	if k.VoterToken == "" {
		return k.Origin
	}
	return k.Origin + ":" + k.VoterToken
}

// PerVoter reports whether the key is token-qualified.
func (k RateLimitKey) PerVoter() bool {
	return k.VoterToken != ""
}

// RateLimitPolicy is a fixed-window policy with separate ceilings for
// origin-only and token-qualified keys.
type RateLimitPolicy struct {
	Window       time.Duration
	MaxPerOrigin int
	MaxPerVoter  int
}

// DefaultRateLimitPolicy allows 1000 requests per origin and 10 per voter per minute.
var DefaultRateLimitPolicy = RateLimitPolicy{
	Window:       time.Minute,
	MaxPerOrigin: 1000,
	MaxPerVoter:  10,
}

// Limit returns the ceiling that applies to key.
func (p RateLimitPolicy) Limit(key RateLimitKey) int {
	if key.PerVoter() {
		return p.MaxPerVoter
	}
	return p.MaxPerOrigin
}

// RateLimitDecision is the outcome of one admission check.
type RateLimitDecision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

// Remaining returns how many more requests fit in the current window.
func (d RateLimitDecision) Remaining() int {
	return max(d.Limit-d.Count, 0)
}

// RateLimiter is a fixed-window admission gate. Admit counts the request
// against key's window and reports whether it is within the ceiling.
type RateLimiter interface {
	Admit(ctx context.Context, key RateLimitKey, now time.Time) (RateLimitDecision, error)
}
