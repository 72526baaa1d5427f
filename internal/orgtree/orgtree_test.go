// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orgtree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grant-attribution/internal/taxonomy"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

func ptr(s string) *string { return &s }

func testTaxonomy() *taxonomy.Taxonomy {
	return taxonomy.New("Example University", map[string]map[string][]string{
		"Medical School": {
			"Medicine":  {"Nephrology", "Cardiovascular"},
			"Neurology": nil,
		},
		"School of Pharmacy": {"Pharmacy": nil},
	})
}

func person(name, school, dept string, div *string) types.PersonRecord {
	rec := types.NewMatchedRecord(name, types.MatchResult{EntryID: "uid=" + name, RankTitle: "Professor", RawUnitLabel: dept})
	rec.SetUnit(types.UnitAssignment{School: types.StringPtr(school), Department: types.StringPtr(dept), Division: div})
	return rec
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func memberNames(ms []Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestBuildSeedsTaxonomy(t *testing.T) {
	root := Build(testTaxonomy(), nil)

	assert.Equal(t, "Example University", root.Name)
	assert.Equal(t, []string{"Medical School", "School of Pharmacy"}, names(root.Children))
	assert.Equal(t, []string{"Medicine", "Neurology"}, names(root.Find("Medical School").Children))
	assert.Equal(t, []string{"Cardiovascular", "Nephrology"}, names(root.Find("Medical School", "Medicine").Children))
	assert.Nil(t, root.Find("Medical School", "Medicine", "Other"), "no Other division until needed")
	assert.Zero(t, root.CountPeople())
}

func TestBuildPlacesPeople(t *testing.T) {
	people := []types.PersonRecord{
		person("SMITH, JANE", "Medical School", "Medicine", ptr("Cardiovascular")),
		person("ADAMS, ROY", "Medical School", "Medicine", ptr("Cardiovascular")),
		person("BROWN, AL", "Medical School", "Medicine", nil),
		person("KING, LEE", "Medical School", "Neurology", nil),
		person("P123", "School of Pharmacy", "Pharmacy", nil),
		person("ZED, ANN", taxonomy.OtherDepartments, "Unknown Dept XYZ", nil),
	}
	root := Build(testTaxonomy(), people)

	cardio := root.Find("Medical School", "Medicine", "Cardiovascular")
	require.NotNil(t, cardio)
	assert.Equal(t, []string{"ADAMS, ROY", "SMITH, JANE"}, memberNames(cardio.People))

	medicine := root.Find("Medical School", "Medicine")
	assert.Empty(t, medicine.People, "divided department holds no people directly")
	other := root.Find("Medical School", "Medicine", taxonomy.OtherDivision)
	require.NotNil(t, other)
	assert.Equal(t, []string{"BROWN, AL"}, memberNames(other.People))

	assert.Equal(t, []string{"KING, LEE"}, memberNames(root.Find("Medical School", "Neurology").People))

	bucket := root.Find(taxonomy.OtherDepartments, "Unknown Dept XYZ")
	require.NotNil(t, bucket)
	assert.Equal(t, []string{"ZED, ANN"}, memberNames(bucket.People))

	assert.Equal(t, 6, root.CountPeople())
	assert.Equal(t, []string{"Medical School", taxonomy.OtherDepartments, "School of Pharmacy"}, names(root.Children))
}

func TestBuildCreatesUndeclaredUnits(t *testing.T) {
	people := []types.PersonRecord{
		person("LEE, AMY", "Medical School", "Biomaterials", nil),
		person("ODD, TOM", "Graduate School", "Graduate Studies", nil),
	}
	root := Build(testTaxonomy(), people)

	assert.NotNil(t, root.Find("Medical School", "Biomaterials"))
	assert.NotNil(t, root.Find("Graduate School", "Graduate Studies"))
}

func TestBuildIgnoresDivisionOfUndividedDepartment(t *testing.T) {
	people := []types.PersonRecord{person("KING, LEE", "Medical School", "Neurology", ptr("Stroke"))}
	root := Build(testTaxonomy(), people)

	neuro := root.Find("Medical School", "Neurology")
	assert.Empty(t, neuro.Children)
	assert.Equal(t, []string{"KING, LEE"}, memberNames(neuro.People))
}

func TestBuildUnrefinedRecords(t *testing.T) {
	withDept := types.NewMatchedRecord("A, B", types.MatchResult{EntryID: "uid=a", RawUnitLabel: "Astronomy"})
	notFound := types.NewNotFoundRecord("C, D")
	root := Build(testTaxonomy(), []types.PersonRecord{withDept, notFound})

	assert.Equal(t, []string{"A, B"}, memberNames(root.Find(taxonomy.OtherDepartments, "Astronomy").People))
	assert.Equal(t, []string{"C, D"}, memberNames(root.Find(taxonomy.OtherDepartments, taxonomy.Unknown).People))
}

func TestBuildDividedDepartmentsNeverHoldPeople(t *testing.T) {
	tax := testTaxonomy()
	var people []types.PersonRecord
	divs := []*string{nil, ptr("Cardiovascular"), ptr("Nephrology"), ptr("Transplant")}
	for i := 0; i < 40; i++ {
		people = append(people, person(fmt.Sprintf("P%02d", 40-i), "Medical School", "Medicine", divs[i%len(divs)]))
	}
	root := Build(tax, people)

	for _, school := range tax.Schools() {
		for _, dept := range tax.Departments(school) {
			if tax.HasDivisions(school, dept) {
				assert.Empty(t, root.Find(school, dept).People, "%s / %s", school, dept)
			}
		}
	}
	assert.Len(t, root.Find("Medical School", "Medicine", taxonomy.OtherDivision).People, 10)
	assert.Len(t, root.Find("Medical School", "Medicine", "Transplant").People, 10)
	assert.Equal(t, 40, root.CountPeople())
}

func TestBuildSiblingsStrictlyIncreasing(t *testing.T) {
	people := []types.PersonRecord{
		person("b", "medical school", "x", nil),
		person("a", "Medical School", "Zeta", nil),
		person("c", "Medical School", "alpha", nil),
		person("d", "Medical School", "Zeta", nil),
	}
	root := Build(testTaxonomy(), people)

	root.Walk(func(n *Node, _ int) {
		for i := 1; i < len(n.Children); i++ {
			assert.Less(t, n.Children[i-1].Name, n.Children[i].Name, "under %q", n.Name)
		}
		for i := 1; i < len(n.People); i++ {
			assert.LessOrEqual(t, n.People[i-1].Name, n.People[i].Name)
		}
	})
	assert.Equal(t, []string{"Medicine", "Neurology", "Zeta", "alpha"}, names(root.Find("Medical School").Children))
}

func TestBuildDeterministic(t *testing.T) {
	people := []types.PersonRecord{
		person("SMITH, JANE", "Medical School", "Medicine", ptr("Cardiovascular")),
		person("BROWN, AL", "Medical School", "Medicine", nil),
		person("ZED, ANN", taxonomy.OtherDepartments, "Unknown Dept XYZ", nil),
	}
	reversed := []types.PersonRecord{people[2], people[1], people[0]}

	var a, b bytes.Buffer
	require.NoError(t, Encode(&a, Build(testTaxonomy(), people), FormatJSON))
	require.NoError(t, Encode(&b, Build(testTaxonomy(), reversed), FormatJSON))
	assert.Equal(t, a.String(), b.String())
}

func TestEncode(t *testing.T) {
	people := []types.PersonRecord{person("SMITH, JANE", "Medical School", "Medicine", ptr("Cardiovascular"))}
	root := Build(testTaxonomy(), people)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, root, FormatJSON))
	var decoded Node
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	cardio := decoded.Find("Medical School", "Medicine", "Cardiovascular")
	require.NotNil(t, cardio)
	require.Len(t, cardio.People, 1)
	assert.Equal(t, "Professor", *cardio.People[0].Rank)

	buf.Reset()
	require.NoError(t, Encode(&buf, root, FormatYAML))
	var fromYAML Node
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.NotNil(t, fromYAML.Find("Medical School", "Medicine", "Cardiovascular"))

	assert.Error(t, Encode(&buf, root, "xml"))
}

func TestWriteSummary(t *testing.T) {
	people := []types.PersonRecord{
		person("SMITH, JANE", "Medical School", "Medicine", ptr("Cardiovascular")),
		person("KING, LEE", "Medical School", "Neurology", nil),
		person("P123", "School of Pharmacy", "Pharmacy", nil),
	}
	root := Build(testTaxonomy(), people)

	assert.Equal(t, []SchoolSummary{
		{Name: "Medical School", Departments: 2, People: 2},
		{Name: "School of Pharmacy", Departments: 1, People: 1},
	}, Summarize(root))

	var buf bytes.Buffer
	WriteSummary(&buf, root)
	assert.Contains(t, buf.String(), "Schools: 2")
	assert.Contains(t, buf.String(), "- Medical School: 2 departments, 2 PIs")
	assert.Contains(t, buf.String(), "Total Departments: 3")
	assert.Contains(t, buf.String(), "Total PIs: 3")
}
