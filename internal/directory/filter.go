// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package directory

import (
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"

	"github.com/pdiddy/grant-attribution/internal/names"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Term constrains one name attribute, either to an exact value or to a prefix.
type Term struct {
	Value  string
	Prefix bool
}

// Exact returns an equality term.
func Exact(v string) Term { return Term{Value: v} }

// PrefixOf returns a prefix term.
func PrefixOf(v string) Term { return Term{Value: v, Prefix: true} }

// Filter is a conjunction over surname and given name. Directories
// evaluate both terms case-insensitively.
type Filter struct {
	Surname   Term
	GivenName Term
}

// String renders the filter in RFC 4515 syntax with sn and givenName
// attributes, escaping the values.
func (f Filter) String() string {
	return "(&" + renderTerm("sn", f.Surname) + renderTerm("givenName", f.GivenName) + ")"
}

func renderTerm(attr string, t Term) string {
	v := ldap.EscapeFilter(t.Value)
	if t.Prefix {
		v += "*"
	}
	return "(" + attr + "=" + v + ")"
}

// Matches reports whether a candidate satisfies the filter. In-memory
// directories use it to answer searches the way a server would.
func (f Filter) Matches(c types.DirectoryCandidate) bool {
	return termMatches(f.Surname, c.Last) && termMatches(f.GivenName, c.First)
}

func termMatches(t Term, value string) bool {
	if t.Prefix {
		return names.HasPrefixFold(value, t.Value)
	}
	return names.EqualFold(value, t.Value)
}

// Filters returns the search passes for n in strictly decreasing
// specificity:
//
//  1. exact surname and exact given name
//  2. exact surname and given-name prefix
//  3. surname prefix and given-name prefix
//  4. surname prefix and first-initial prefix
//
// A pass identical to an earlier one (a one-letter given name makes 3 and
// 4 the same) is dropped. A name without a given name yields no passes,
// since no candidate could share its leading character.
func Filters(n types.NormalizedName) []Filter {
	if n.Last == "" || n.First == "" {
		return nil
	}
	_, size := utf8.DecodeRuneInString(n.First)
	initial := n.First[:size]

	passes := []Filter{
		{Surname: Exact(n.Last), GivenName: Exact(n.First)},
		{Surname: Exact(n.Last), GivenName: PrefixOf(n.First)},
		{Surname: PrefixOf(n.Last), GivenName: PrefixOf(n.First)},
		{Surname: PrefixOf(n.Last), GivenName: PrefixOf(initial)},
	}

	out := passes[:0]
	seen := make(map[Filter]bool, len(passes))
	for _, f := range passes {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
