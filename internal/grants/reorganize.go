// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grants

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// UnknownKey groups projects without a contact PI or project number.
const UnknownKey = "Unknown"

// ClipProjectNum removes a leading application type digit:
// "1U01DK127367-01" becomes "U01DK127367-01".
func ClipProjectNum(num string) string {
	r, size := utf8.DecodeRuneInString(num)
	if size > 0 && unicode.IsDigit(r) {
		return num[size:]
	}
	return num
}

// CoreProjectNum strips the support-year suffix and the application type
// digit: "1U01DK127367-01" becomes "U01DK127367". An empty number yields
// UnknownKey.
func CoreProjectNum(num string) string {
	if num == "" {
		return UnknownKey
	}
	base, _, _ := strings.Cut(num, "-")
	return ClipProjectNum(base)
}

// Reorganize groups projects by contact PI name, then by core project
// number, and sorts each group by clipped project number. The
// ProjectNumClip and CoreProjectNum fields of each copy are filled in.
func Reorganize(projects []types.Project) types.ProjectsByPI {
	byPI := make(types.ProjectsByPI)
	for _, p := range projects {
		pi := strings.TrimSpace(p.ContactPIName)
		if pi == "" {
			pi = UnknownKey
		}
		p.CoreProjectNum = CoreProjectNum(p.ProjectNum)
		p.ProjectNumClip = ClipProjectNum(p.ProjectNum)

		cores, ok := byPI[pi]
		if !ok {
			cores = make(map[string][]types.Project)
			byPI[pi] = cores
		}
		cores[p.CoreProjectNum] = append(cores[p.CoreProjectNum], p)
	}

	for _, cores := range byPI {
		for _, group := range cores {
			sort.SliceStable(group, func(i, j int) bool {
				return group[i].ProjectNumClip < group[j].ProjectNumClip
			})
		}
	}
	return byPI
}

// PINames returns the contact PI names of byPI in sorted order.
func PINames(byPI types.ProjectsByPI) []string {
	out := make([]string, 0, len(byPI))
	for name := range byPI {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CountProjects returns the total number of projects in byPI.
func CountProjects(byPI types.ProjectsByPI) int {
	n := 0
	for _, cores := range byPI {
		for _, group := range cores {
			n += len(group)
		}
	}
	return n
}
