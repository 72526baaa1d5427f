// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orgtree

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Format is a tree serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode writes the tree to w as nested named groups with member lists.
func Encode(w io.Writer, root *Node, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("encoding tree as JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("encoding tree as YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown tree format %q (want json or yaml)", format)
	}
}

// SchoolSummary counts one school's departments and people.
type SchoolSummary struct {
	Name        string
	Departments int
	People      int
}

// Summarize returns per-school counts in tree order.
func Summarize(root *Node) []SchoolSummary {
	out := make([]SchoolSummary, 0, len(root.Children))
	for _, s := range root.Children {
		out = append(out, SchoolSummary{Name: s.Name, Departments: len(s.Children), People: s.CountPeople()})
	}
	return out
}

// WriteSummary prints the per-school counts and totals.
func WriteSummary(w io.Writer, root *Node) {
	schools := Summarize(root)
	fmt.Fprintf(w, "\nSummary: %s\n", root.Name)
	fmt.Fprintf(w, "  Schools: %d\n", len(schools))

	var depts, people int
	for _, s := range schools {
		fmt.Fprintf(w, "    - %s: %d departments, %d PIs\n", s.Name, s.Departments, s.People)
		depts += s.Departments
		people += s.People
	}
	fmt.Fprintf(w, "\n  Total Departments: %d\n", depts)
	fmt.Fprintf(w, "  Total PIs: %d\n", people)
}
