// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (errors.go, question.go, vote.go, tally.go, etc.)
// with shared types and cross-cutting interfaces. No infrastructure code - just contracts and
// the small pure functions every layer must agree on (rating parsing, percentages).
package domain
