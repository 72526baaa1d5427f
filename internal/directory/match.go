// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package directory resolves normalized investigator names against a
// person directory.
//
// Match runs the passes returned by Filters in order and folds every
// accepted candidate into a best-so-far value. Ties keep the earliest
// candidate. The fold stops as soon as an exact given-name match is seen,
// so a looser later pass can never displace an exact match found earlier.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/grant-attribution/internal/names"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// ErrUnavailable means the directory cannot be reached. It is fatal to a
// batch: no further lookups are attempted.
var ErrUnavailable = errors.New("directory unavailable")

// Directory answers structured name searches. An empty result is not an
// error.
type Directory interface {
	Search(ctx context.Context, f Filter) ([]types.DirectoryCandidate, error)
}

// QueryError is a failed search pass. It is recoverable: Match moves on
// to the next pass.
type QueryError struct {
	Filter Filter
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Filter, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Accept reports whether candidate c is a plausible match for n: its
// surname contains n.Last and its given name shares n.First's leading
// character. Both comparisons ignore case.
func Accept(c types.DirectoryCandidate, n types.NormalizedName) bool {
	if c.First == "" || n.First == "" {
		return false
	}
	return names.ContainsFold(c.Last, n.Last) && names.FirstRune(c.First) == names.FirstRune(n.First)
}

// Score grades an accepted candidate's given name against n.First.
func Score(c types.DirectoryCandidate, n types.NormalizedName) int {
	switch {
	case names.EqualFold(c.First, n.First):
		return types.ScoreExact
	case names.HasPrefixFold(c.First, n.First):
		return types.ScorePrefix
	default:
		return types.ScoreInitial
	}
}

// best is the running reduction over candidates.
type best struct {
	candidate types.DirectoryCandidate
	score     int
	found     bool
}

func (b best) exact() bool {
	return b.found && b.score == types.ScoreExact
}

// consider keeps c only when it strictly beats the current best.
func (b best) consider(c types.DirectoryCandidate, score int) best {
	if !b.found || score > b.score {
		return best{candidate: c, score: score, found: true}
	}
	return b
}

// fold reduces one pass's candidates into b, stopping at the first exact
// match.
func (b best) fold(cands []types.DirectoryCandidate, n types.NormalizedName) best {
	for _, c := range cands {
		if b.exact() {
			break
		}
		if !Accept(c, n) {
			continue
		}
		b = b.consider(c, Score(c, n))
	}
	return b
}

func (b best) result() types.MatchResult {
	return types.MatchResult{
		EntryID:      b.candidate.EntryID,
		RankTitle:    b.candidate.Title,
		RawUnitLabel: b.candidate.UnitLabel,
		Organization: b.candidate.Organization,
		Score:        b.score,
	}
}

// Outcome is the result of matching one name.
type Outcome struct {
	Result types.MatchResult
	Found  bool

	// Passes is the number of searches issued.
	Passes int

	// Errors holds the recoverable per-pass failures.
	Errors []*QueryError
}

// Match searches dir for n and returns the best-scoring accepted
// candidate across all passes. It returns an error only when the
// directory is unavailable or ctx is done; per-pass failures are
// collected in Outcome.Errors.
func Match(ctx context.Context, dir Directory, n types.NormalizedName) (Outcome, error) {
	var out Outcome
	acc := best{}
	for _, f := range Filters(n) {
		if acc.exact() {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		cands, err := dir.Search(ctx, f)
		out.Passes++
		if err != nil {
			if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			out.Errors = append(out.Errors, &QueryError{Filter: f, Err: err})
			continue
		}
		acc = acc.fold(cands, n)
	}

	if acc.found {
		out.Result = acc.result()
		out.Found = true
	}
	return out, nil
}
