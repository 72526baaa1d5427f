// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grants

import (
	"sort"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// JoinSummary holds counts from a join run.
type JoinSummary struct {
	Projects     int
	PIs          int
	MissingPI    int // PIs with no cached record
	UnmatchedPIs int // PIs looked up without a directory match
}

// Join flattens byPI into one row per project, attaching the cached
// attributes of the project's contact PI. Rows are ordered by PI name,
// core project number, then clipped project number. A PI without a cached
// record gets null attributes.
func Join(byPI types.ProjectsByPI, c *cache.Cache) ([]types.EnrichedProject, JoinSummary) {
	var s JoinSummary
	var rows []types.EnrichedProject

	for _, pi := range PINames(byPI) {
		s.PIs++
		rec, ok := c.Get(pi)
		switch {
		case !ok:
			s.MissingPI++
		case !rec.Matched():
			s.UnmatchedPIs++
		}

		cores := byPI[pi]
		coreNums := make([]string, 0, len(cores))
		for core := range cores {
			coreNums = append(coreNums, core)
		}
		sort.Strings(coreNums)

		for _, core := range coreNums {
			for _, p := range cores[core] {
				row := types.EnrichedProject{Project: p}
				if ok {
					row.PIRank = rec.Rank
					row.PIDepartment = rec.Department
					row.PIOrganization = rec.Organization
					row.PISchoolOfficial = rec.SchoolOfficial
					row.PIDepartmentOfficial = rec.DepartmentOfficial
					row.PIDivisionOfficial = rec.DivisionOfficial
					row.PIEntryID = rec.EntryID
				}
				rows = append(rows, row)
				s.Projects++
			}
		}
	}
	return rows, s
}
