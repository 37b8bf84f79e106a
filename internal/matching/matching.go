// Package matching ranks registered profiles against a requester's skill pair.
//
// A Scorer judges relevance; the Proposer wraps any Scorer and enforces the
// result contract: at most model.MaxMatches entries, best first, drawn only
// from the candidate pool and never containing the requester.
package matching

import (
	"context"
	"errors"

	"github.com/skillswap/skillswap/internal/model"
)

var (
	// ErrBackend marks any failure of the scoring backend, including timeouts.
	// Callers may retry the whole request.
	ErrBackend = errors.New("scoring backend failed")
	// ErrInvalidQuery is returned when a skill is missing or malformed.
	ErrInvalidQuery = errors.New("invalid match query")
)

// Query is what a Scorer sees: the requester's skills and a pool that
// already excludes the requester.
type Query struct {
	TeachSkill string
	LearnSkill string
	Pool       []*model.Profile
}

// Scorer judges which candidates complement the requester.
// Rank returns candidates best first. It may return more than
// model.MaxMatches entries or emails outside the pool; the Proposer
// filters those out.
type Scorer interface {
	Name() string
	Rank(ctx context.Context, q Query) ([]model.Match, error)
}
