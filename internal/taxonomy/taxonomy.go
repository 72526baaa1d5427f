// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package taxonomy holds the canonical school → department → division
// hierarchy and the operator override documents. Both are read once at
// startup and passed explicitly to the resolver and tree builder; nothing
// here is mutated after loading.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Catch-all labels used when no canonical unit applies.
const (
	// OtherDepartments is the school for departments no rule maps.
	OtherDepartments = "Other Departments"

	// Unknown is the department for people without a department string.
	Unknown = "Unknown"

	// OtherDivision holds people of a divided department whose
	// assignment names no division.
	OtherDivision = "Other"

	// OtherDepartment holds people a directory lists only by college
	// ("CLA Admin", "CSENG").
	OtherDepartment = "Other"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

// Document is the on-disk form of a taxonomy:
//
//	name: University of Minnesota Twin Cities
//	schools:
//	  Medical School:
//	    Medicine: [Cardiovascular, Nephrology and Hypertension]
//	    Neurology: []
type Document struct {
	Name    string                         `yaml:"name" json:"name"`
	Schools map[string]map[string][]string `yaml:"schools" json:"schools"`
}

// Taxonomy is an immutable school → department → divisions mapping.
type Taxonomy struct {
	name    string
	schools map[string]map[string][]string
}

// New builds a Taxonomy from a nested mapping. The input is copied and
// every division list is sorted.
func New(name string, schools map[string]map[string][]string) *Taxonomy {
	t := &Taxonomy{name: name, schools: make(map[string]map[string][]string, len(schools))}
	for school, depts := range schools {
		m := make(map[string][]string, len(depts))
		for dept, divs := range depts {
			d := append([]string(nil), divs...)
			sort.Strings(d)
			m[dept] = d
		}
		t.schools[school] = m
	}
	return t
}

// Parse decodes a YAML taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if len(doc.Schools) == 0 {
		return nil, fmt.Errorf("parsing taxonomy: no schools declared")
	}
	for school, depts := range doc.Schools {
		if school == "" {
			return nil, fmt.Errorf("parsing taxonomy: empty school name")
		}
		for dept := range depts {
			if dept == "" {
				return nil, fmt.Errorf("parsing taxonomy: empty department name under %q", school)
			}
		}
	}
	return New(doc.Name, doc.Schools), nil
}

// Load reads a taxonomy document from path. An empty path returns the
// built-in taxonomy.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("built-in taxonomy: %v", err))
	}
	return t
}

// Name returns the institution name at the root of the hierarchy.
func (t *Taxonomy) Name() string { return t.name }

// Schools returns the declared school names in sorted order.
func (t *Taxonomy) Schools() []string {
	return sortedKeys(t.schools)
}

// Departments returns the departments declared under school, sorted.
func (t *Taxonomy) Departments(school string) []string {
	return sortedKeys(t.schools[school])
}

// Divisions returns the divisions declared for a department, sorted. The
// result is empty for an undeclared or undivided department.
func (t *Taxonomy) Divisions(school, dept string) []string {
	return append([]string(nil), t.schools[school][dept]...)
}

// Declares reports whether school declares dept.
func (t *Taxonomy) Declares(school, dept string) bool {
	_, ok := t.schools[school][dept]
	return ok
}

// HasDivisions reports whether dept under school is declared with at
// least one division.
func (t *Taxonomy) HasDivisions(school, dept string) bool {
	return len(t.schools[school][dept]) > 0
}

// DeclaresDivision reports whether div is one of the divisions declared
// for dept under school.
func (t *Taxonomy) DeclaresDivision(school, dept, div string) bool {
	return slices.Contains(t.schools[school][dept], div)
}

// Document returns the taxonomy in its serializable form.
func (t *Taxonomy) Document() Document {
	doc := Document{Name: t.name, Schools: make(map[string]map[string][]string, len(t.schools))}
	for school, depts := range t.schools {
		m := make(map[string][]string, len(depts))
		for dept, divs := range depts {
			m[dept] = append([]string{}, divs...)
		}
		doc.Schools[school] = m
	}
	return doc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
