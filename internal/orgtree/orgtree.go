// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orgtree builds the nested school → department → division
// structure with people attached at the leaves.
//
// The tree is seeded from the taxonomy, so every declared unit appears
// even when empty. People are then inserted along their unit
// assignment, creating schools and departments the taxonomy does not
// declare. A person whose department is declared with divisions but
// whose assignment names none goes under that department's "Other"
// division, never directly under the department.
package orgtree

import (
	"sort"

	"github.com/pdiddy/grant-attribution/internal/taxonomy"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Member is a person attached to a leaf.
type Member struct {
	Name    string  `json:"name" yaml:"name"`
	Rank    *string `json:"rank" yaml:"rank"`
	EntryID *string `json:"entry_id" yaml:"entry_id"`
}

// Node is one unit in the tree. Children are sorted by name with no
// duplicates; People are sorted by name.
type Node struct {
	Name     string   `json:"name" yaml:"name"`
	Children []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
	People   []Member `json:"people,omitempty" yaml:"people,omitempty"`

	index map[string]*Node
}

// Build returns the sorted tree for tax and people. With no people it is
// the bare taxonomy structure. Neither argument is modified.
func Build(tax *taxonomy.Taxonomy, people []types.PersonRecord) *Node {
	root := &Node{Name: tax.Name()}

	for _, school := range tax.Schools() {
		s := root.child(school)
		for _, dept := range tax.Departments(school) {
			d := s.child(dept)
			for _, div := range tax.Divisions(school, dept) {
				d.child(div)
			}
		}
	}

	for _, p := range people {
		school, dept, div := placement(tax, p)
		n := root.child(school).child(dept)
		if div != "" {
			n = n.child(div)
		}
		n.People = append(n.People, Member{Name: p.RawName, Rank: p.Rank, EntryID: p.EntryID})
	}

	root.finish()
	return root
}

// placement decides where p goes. A record never refined falls back to the
// catch-all bucket under its raw department. The division returned is ""
// for a department declared without divisions, whatever the record says.
func placement(tax *taxonomy.Taxonomy, p types.PersonRecord) (school, dept, div string) {
	u := p.Unit()
	school, dept = types.Deref(u.School), types.Deref(u.Department)
	if school == "" || dept == "" {
		school, dept = taxonomy.OtherDepartments, types.Deref(p.Department)
		if dept == "" {
			dept = taxonomy.Unknown
		}
		return school, dept, ""
	}
	if !tax.HasDivisions(school, dept) {
		return school, dept, ""
	}
	if div = types.Deref(u.Division); div == "" {
		div = taxonomy.OtherDivision
	}
	return school, dept, div
}

// child returns the child named name, creating it if needed.
func (n *Node) child(name string) *Node {
	if c, ok := n.index[name]; ok {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	c := &Node{Name: name}
	n.index[name] = c
	n.Children = append(n.Children, c)
	return c
}

// finish sorts every level and drops the build index.
func (n *Node) finish() {
	n.index = nil
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	sort.SliceStable(n.People, func(i, j int) bool { return n.People[i].Name < n.People[j].Name })
	for _, c := range n.Children {
		c.finish()
	}
}

// Find returns the node at path below n, or nil.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		i := sort.Search(len(cur.Children), func(i int) bool { return cur.Children[i].Name >= name })
		if i == len(cur.Children) || cur.Children[i].Name != name {
			return nil
		}
		cur = cur.Children[i]
	}
	return cur
}

// CountPeople returns the number of people attached at or below n.
func (n *Node) CountPeople() int {
	total := len(n.People)
	for _, c := range n.Children {
		total += c.CountPeople()
	}
	return total
}

// Walk calls fn for n and every node below it, depth first, with the
// node's depth (0 for n).
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(*Node, int)) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}
