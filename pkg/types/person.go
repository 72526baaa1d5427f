// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the grant-attribution pipeline.
// It covers the person model (queries, directory candidates, match results,
// cached person records and their unit assignments), the grant project
// model, and stage configuration.
package types

// PersonQuery is a single lookup request for a raw person name as it
// appears in a grant record (e.g. "REDISH, A DAVID").
type PersonQuery struct {
	RawName string `json:"raw_name" yaml:"raw_name"`
}

// NormalizedName is the canonical (last, first, initials) form of a raw
// name. It is derived once and never mutated.
type NormalizedName struct {
	Last     string   `json:"last" yaml:"last"`
	First    string   `json:"first" yaml:"first"`
	Initials []string `json:"initials,omitempty" yaml:"initials,omitempty"`
}

// DirectoryCandidate is one entry returned by a directory search.
type DirectoryCandidate struct {
	Last         string `json:"last" yaml:"last"`
	First        string `json:"first" yaml:"first"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	UnitLabel    string `json:"unit_label,omitempty" yaml:"unit_label,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	EntryID      string `json:"entry_id" yaml:"entry_id"`
}

// Match scores. A higher score is a more specific given-name agreement.
const (
	ScoreInitial = 0 // given names share only the leading character
	ScorePrefix  = 1 // candidate given name starts with the query given name
	ScoreExact   = 2 // given names are equal (case-insensitive)
)

// MatchResult is the single surviving candidate for a PersonQuery.
type MatchResult struct {
	EntryID      string `json:"entry_id" yaml:"entry_id"`
	RankTitle    string `json:"rank_title,omitempty" yaml:"rank_title,omitempty"`
	RawUnitLabel string `json:"raw_unit_label,omitempty" yaml:"raw_unit_label,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Score        int    `json:"score" yaml:"score"`
}

// LookupStatus distinguishes "looked up, no match" from a match. A person
// that was never looked up has no PersonRecord at all.
type LookupStatus string

const (
	StatusMatched  LookupStatus = "matched"
	StatusNotFound LookupStatus = "not_found"
)

// UnitAssignment places a person in the canonical taxonomy. Division is
// non-nil only when it names a division the taxonomy declares for Department.
type UnitAssignment struct {
	School     *string `json:"school" yaml:"school"`
	Department *string `json:"department" yaml:"department"`
	Division   *string `json:"division" yaml:"division"`
}

// IsZero reports whether no field of the assignment is set.
func (u UnitAssignment) IsZero() bool {
	return u.School == nil && u.Department == nil && u.Division == nil
}

// OverrideEntry is an operator-supplied (school, department, division)
// triple keyed either by raw person name or by raw department string.
type OverrideEntry struct {
	School     string `json:"school" yaml:"school"`
	Department string `json:"department" yaml:"department"`
	Division   string `json:"division,omitempty" yaml:"division,omitempty"`
}

// Assignment converts the override into a UnitAssignment. Empty fields
// become nil.
func (o OverrideEntry) Assignment() UnitAssignment {
	return UnitAssignment{
		School:     StringPtr(o.School),
		Department: StringPtr(o.Department),
		Division:   StringPtr(o.Division),
	}
}

// PersonRecord is the cached outcome of looking up one raw name, together
// with its resolved unit. Field names follow the persisted JSON layout:
// identifier, rank, raw department and organization from the directory,
// then the three official unit fields written by the refine stage.
type PersonRecord struct {
	RawName            string       `json:"-" yaml:"-"`
	Status             LookupStatus `json:"status" yaml:"status"`
	EntryID            *string      `json:"entry_id" yaml:"entry_id"`
	Rank               *string      `json:"rank" yaml:"rank"`
	Department         *string      `json:"department" yaml:"department"`
	Organization       *string      `json:"organization" yaml:"organization"`
	Score              *int         `json:"score,omitempty" yaml:"score,omitempty"`
	SchoolOfficial     *string      `json:"school_official" yaml:"school_official"`
	DepartmentOfficial *string      `json:"department_official" yaml:"department_official"`
	DivisionOfficial   *string      `json:"division_official" yaml:"division_official"`
}

// NewMatchedRecord builds a PersonRecord from a directory match.
func NewMatchedRecord(rawName string, m MatchResult) PersonRecord {
	score := m.Score
	return PersonRecord{
		RawName:      rawName,
		Status:       StatusMatched,
		EntryID:      StringPtr(m.EntryID),
		Rank:         StringPtr(m.RankTitle),
		Department:   StringPtr(m.RawUnitLabel),
		Organization: StringPtr(m.Organization),
		Score:        &score,
	}
}

// NewNotFoundRecord builds the explicit "looked up, no match" record.
func NewNotFoundRecord(rawName string) PersonRecord {
	return PersonRecord{RawName: rawName, Status: StatusNotFound}
}

// Matched reports whether the record carries a directory match.
func (p PersonRecord) Matched() bool {
	return p.Status == StatusMatched
}

// Unit returns the official unit fields as a UnitAssignment.
func (p PersonRecord) Unit() UnitAssignment {
	return UnitAssignment{
		School:     p.SchoolOfficial,
		Department: p.DepartmentOfficial,
		Division:   p.DivisionOfficial,
	}
}

// SetUnit stores a resolved UnitAssignment on the record.
func (p *PersonRecord) SetUnit(u UnitAssignment) {
	p.SchoolOfficial = u.School
	p.DepartmentOfficial = u.Department
	p.DivisionOfficial = u.Division
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
