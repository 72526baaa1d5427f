// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Rule maps every department string containing Pattern to a unit. Patterns
// are lower case and matched against the lower-cased department string.
// A Word rule matches only where Pattern is bounded by non-alphanumeric
// characters or the ends of the string, so "son" matches "SON Adult
// Health" but not "Johnson".
type Rule struct {
	Pattern    string `yaml:"pattern" json:"pattern"`
	Word       bool   `yaml:"word,omitempty" json:"word,omitempty"`
	School     string `yaml:"school" json:"school"`
	Department string `yaml:"department" json:"department"`
	Division   string `yaml:"division,omitempty" json:"division,omitempty"`
}

// matches reports whether the rule fires on a lower-cased department string.
func (r Rule) matches(lower string) bool {
	if r.Word {
		return containsWord(lower, r.Pattern, true)
	}
	return strings.Contains(lower, r.Pattern)
}

// Assignment returns the rule's target unit.
func (r Rule) Assignment() types.UnitAssignment {
	return types.OverrideEntry{School: r.School, Department: r.Department, Division: r.Division}.Assignment()
}

// Rules is an ordered pattern table. The first rule whose pattern occurs
// in the department string wins, so a narrow pattern must come before any
// broader pattern that also matches its text ("med cardiology" before
// "medicine", "dent biomaterials" before "dent").
type Rules []Rule

// Match returns the first rule whose pattern is a substring of the
// lower-cased dept.
func (rs Rules) Match(dept string) (Rule, bool) {
	lower := strings.ToLower(dept)
	for _, r := range rs {
		if r.matches(lower) {
			return r, true
		}
	}
	return Rule{}, false
}

// containsWord reports whether p occurs in s with a word boundary on both
// sides. When edges is false the ends of s do not count as boundaries.
func containsWord(s, p string, edges bool) bool {
	for i := 0; i+len(p) <= len(s); {
		j := strings.Index(s[i:], p)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(p)
		if boundary(s, start-1, edges) && boundary(s, end, edges) {
			return true
		}
		i = start + 1
	}
	return false
}

func boundary(s string, k int, edges bool) bool {
	if k < 0 || k >= len(s) {
		return edges
	}
	c := s[k]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80)
}

// ParseRules decodes a YAML sequence of rules, preserving order.
func ParseRules(data []byte) (Rules, error) {
	var rs Rules
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	seen := make(map[string]int, len(rs))
	for i, r := range rs {
		switch {
		case r.Pattern == "":
			return nil, fmt.Errorf("parsing rules: rule %d has no pattern", i+1)
		case r.Pattern != strings.ToLower(r.Pattern):
			return nil, fmt.Errorf("parsing rules: rule %d pattern %q is not lower case", i+1, r.Pattern)
		case r.School == "" || r.Department == "":
			return nil, fmt.Errorf("parsing rules: rule %d (%q) needs school and department", i+1, r.Pattern)
		}
		if prev, ok := seen[r.Pattern]; ok {
			return nil, fmt.Errorf("parsing rules: pattern %q repeated at rules %d and %d", r.Pattern, prev, i+1)
		}
		seen[r.Pattern] = i + 1
	}
	return rs, nil
}

// LoadRules reads a rule document. An empty path returns the built-in
// rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the built-in pattern table.
func DefaultRules() Rules {
	rs, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in rules: %v", err))
	}
	return rs
}

// Shadowed reports rules that can never fire because every string they
// match is already matched by an earlier rule.
func (rs Rules) Shadowed() []string {
	var out []string
	for i, later := range rs {
		for _, earlier := range rs[:i] {
			if shadows(earlier, later) {
				out = append(out, fmt.Sprintf("%q shadowed by %q", later.Pattern, earlier.Pattern))
				break
			}
		}
	}
	return out
}

// shadows reports whether every string matching later also matches
// earlier. A word rule inside a plain pattern only counts when both of its
// boundaries fall inside that pattern.
func shadows(earlier, later Rule) bool {
	if !earlier.Word {
		return strings.Contains(later.Pattern, earlier.Pattern)
	}
	return containsWord(later.Pattern, earlier.Pattern, later.Word)
}
