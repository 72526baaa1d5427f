// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps directory department strings to canonical units.
//
// Resolution consults three tiers in order and the first hit wins
// outright: a person override keyed by identifier, a department override
// keyed by the exact raw string, then the ordered pattern table. A string
// no tier maps lands in the OtherDepartments bucket and is remembered in
// the unmapped set for the operator.
package resolve

import (
	"sort"
	"strings"

	"github.com/pdiddy/grant-attribution/internal/taxonomy"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Source names the tier that produced an assignment.
type Source string

const (
	SourcePersonOverride     Source = "person_override"
	SourceDepartmentOverride Source = "department_override"
	SourcePattern            Source = "pattern"
	SourceUnmapped           Source = "unmapped"
	SourceUnknown            Source = "unknown"
)

// Mapped reports whether the assignment came from an override or a rule.
func (s Source) Mapped() bool {
	return s != SourceUnmapped && s != SourceUnknown
}

// Resolver assigns units. The reference data is supplied at construction
// and never modified. A Resolver is not safe for concurrent use because
// it accumulates the unmapped set.
type Resolver struct {
	Taxonomy            *taxonomy.Taxonomy
	PersonOverrides     taxonomy.Overrides
	DepartmentOverrides taxonomy.Overrides
	Rules               Rules

	unmapped map[string]struct{}
	dropped  int
}

// New returns a Resolver over the given reference data. Either override
// table may be nil.
func New(tax *taxonomy.Taxonomy, persons, depts taxonomy.Overrides, rules Rules) *Resolver {
	return &Resolver{
		Taxonomy:            tax,
		PersonOverrides:     persons,
		DepartmentOverrides: depts,
		Rules:               rules,
	}
}

// Resolve returns the unit for a person with optional identifier id and
// raw department string dept. It never fails.
func (r *Resolver) Resolve(id, dept *string) types.UnitAssignment {
	u, _ := r.ResolveSource(id, dept)
	return u
}

// ResolveSource is Resolve that also reports which tier decided.
//
// A department string that is empty or all whitespace is treated as
// absent. The returned division is always nil unless it is one of the
// divisions the taxonomy declares for the returned school and
// department.
func (r *Resolver) ResolveSource(id, dept *string) (types.UnitAssignment, Source) {
	raw := canonical(dept)

	if id != nil {
		if e, ok := r.PersonOverrides.Lookup(*id); ok {
			return r.constrain(e.Assignment()), SourcePersonOverride
		}
	}
	if raw == nil {
		return unmappedAssignment(taxonomy.Unknown), SourceUnknown
	}
	if e, ok := r.DepartmentOverrides.Lookup(*raw); ok {
		return r.constrain(e.Assignment()), SourceDepartmentOverride
	}
	if rule, ok := r.Rules.Match(*raw); ok {
		return r.constrain(rule.Assignment()), SourcePattern
	}

	r.noteUnmapped(*raw)
	return unmappedAssignment(*raw), SourceUnmapped
}

// Unmapped returns the distinct raw department strings no tier mapped,
// sorted.
func (r *Resolver) Unmapped() []string {
	out := make([]string, 0, len(r.unmapped))
	for s := range r.unmapped {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Dropped returns how many divisions were discarded because the taxonomy
// does not declare them for their department.
func (r *Resolver) Dropped() int { return r.dropped }

func (r *Resolver) noteUnmapped(raw string) {
	if r.unmapped == nil {
		r.unmapped = make(map[string]struct{})
	}
	r.unmapped[raw] = struct{}{}
}

// constrain clears a division the taxonomy does not declare for the
// assigned department.
func (r *Resolver) constrain(u types.UnitAssignment) types.UnitAssignment {
	if u.Division == nil {
		return u
	}
	if r.Taxonomy == nil || !r.Taxonomy.DeclaresDivision(types.Deref(u.School), types.Deref(u.Department), *u.Division) {
		u.Division = nil
		r.dropped++
	}
	return u
}

func unmappedAssignment(dept string) types.UnitAssignment {
	school, department := taxonomy.OtherDepartments, dept
	return types.UnitAssignment{School: &school, Department: &department}
}

// canonical maps an empty or blank department string to nil. Non-blank
// strings are returned unchanged, since override keys are exact.
func canonical(dept *string) *string {
	if dept == nil || strings.TrimSpace(*dept) == "" {
		return nil
	}
	return dept
}
