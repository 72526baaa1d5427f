// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// RefineSummary holds counts from a refine run.
type RefineSummary struct {
	Total           int
	Mapped          int
	Unmapped        int // unmapped or without a department string
	PersonOverrides int
	DeptOverrides   int
	Patterns        int
	Unknown         int
	Dropped         int
}

// Refine resolves the unit of every cached person and stores the
// official unit fields back into the cache, then saves it. The person's
// raw name is the identifier for person overrides. Records are visited
// in name order so the report is stable.
func Refine(ctx context.Context, c *cache.Cache, r *Resolver, w io.Writer, verbose bool) (RefineSummary, error) {
	log := logging.FromContext(ctx)
	var s RefineSummary

	for _, name := range c.Names() {
		rec, _ := c.Get(name)
		id := name
		u, src := r.ResolveSource(&id, rec.Department)
		if err := c.SetUnit(name, u); err != nil {
			return s, err
		}

		s.Total++
		switch src {
		case SourcePersonOverride:
			s.PersonOverrides++
		case SourceDepartmentOverride:
			s.DeptOverrides++
		case SourcePattern:
			s.Patterns++
		case SourceUnknown:
			s.Unknown++
		}
		if src.Mapped() {
			s.Mapped++
		} else {
			s.Unmapped++
		}

		if verbose {
			fmt.Fprintf(w, "  %s %s: %q -> %s\n", mark(src), name, types.Deref(rec.Department), describe(u))
		}
	}
	s.Dropped = r.Dropped()

	if err := c.Save(); err != nil {
		return s, fmt.Errorf("saving refined person cache: %w", err)
	}

	fmt.Fprintf(w, "\nMapped: %d, Unmapped: %d (of %d PIs)\n", s.Mapped, s.Unmapped, s.Total)
	fmt.Fprintf(w, "  person overrides: %d, department overrides: %d, patterns: %d, no department: %d\n",
		s.PersonOverrides, s.DeptOverrides, s.Patterns, s.Unknown)

	if n := WriteUnmapped(w, r); n > 0 {
		log.Warn().Int("count", n).Msg("departments placed in catch-all bucket; add rules or department overrides")
	}
	if s.Dropped > 0 {
		log.Warn().Int("count", s.Dropped).Msg("divisions dropped: not declared for their department")
	}
	return s, nil
}

// ResolveUnrefined returns a copy of people in which every record without
// official unit fields carries r's assignment, with the raw name as the
// person override identifier. Refined records are copied unchanged. The
// count of records resolved here is returned.
func ResolveUnrefined(r *Resolver, people []types.PersonRecord) ([]types.PersonRecord, int) {
	out := make([]types.PersonRecord, len(people))
	n := 0
	for i, p := range people {
		if p.Unit().IsZero() {
			id := p.RawName
			p.SetUnit(r.Resolve(&id, p.Department))
			n++
		}
		out[i] = p
	}
	return out, n
}

// WriteUnmapped lists r's unmapped department strings and returns how
// many there were. Nothing is written when every string was mapped.
func WriteUnmapped(w io.Writer, r *Resolver) int {
	unmapped := r.Unmapped()
	if len(unmapped) == 0 {
		return 0
	}
	fmt.Fprintf(w, "\nUnmapped departments (%d):\n", len(unmapped))
	for _, dept := range unmapped {
		fmt.Fprintf(w, "  - %s\n", dept)
	}
	return len(unmapped)
}

func mark(src Source) string {
	if src.Mapped() {
		return "ok"
	}
	return "--"
}

// describe renders an assignment as "school / department[ / division]".
func describe(u types.UnitAssignment) string {
	out := types.Deref(u.School) + " / " + types.Deref(u.Department)
	if u.Division != nil {
		out += " / " + *u.Division
	}
	return out
}
