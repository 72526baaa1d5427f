// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export flattens joined project rows and person records into
// tables and writes them as CSV or as an XLSX workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Sheet names in the XLSX workbook.
const (
	ProjectsSheet = "Projects"
	PeopleSheet   = "PIs"
)

// ProjectColumns is the column order of the project table.
var ProjectColumns = []string{
	"project_num", "project_num_clip", "core_project_num", "project_title",
	"contact_pi_name", "fiscal_year", "award_amount",
	"project_start_date", "project_end_date", "budget_start", "budget_end",
	"organization.org_name",
	"pi_rank", "pi_department", "pi_organization",
	"pi_school_official", "pi_department_official", "pi_division_official",
	"pi_entry_id", "abstract_text",
}

// PersonColumns is the column order of the person table.
var PersonColumns = []string{
	"name", "status", "entry_id", "rank", "department", "organization", "score",
	"school_official", "department_official", "division_official",
}

// ProjectRow flattens one joined row in ProjectColumns order. Null
// attributes become empty cells.
func ProjectRow(p types.EnrichedProject) []string {
	org := ""
	if p.Organization != nil {
		org = p.Organization.OrgName
	}
	return []string{
		p.ProjectNum, p.ProjectNumClip, p.CoreProjectNum, p.ProjectTitle,
		p.ContactPIName, formatInt(p.FiscalYear), formatAmount(p.AwardAmount),
		p.ProjectStartDate, p.ProjectEndDate, p.BudgetStart, p.BudgetEnd,
		org,
		types.Deref(p.PIRank), types.Deref(p.PIDepartment), types.Deref(p.PIOrganization),
		types.Deref(p.PISchoolOfficial), types.Deref(p.PIDepartmentOfficial), types.Deref(p.PIDivisionOfficial),
		types.Deref(p.PIEntryID), p.AbstractText,
	}
}

// PersonRow flattens one person record in PersonColumns order.
func PersonRow(r types.PersonRecord) []string {
	score := ""
	if r.Score != nil {
		score = strconv.Itoa(*r.Score)
	}
	return []string{
		r.RawName, string(r.Status), types.Deref(r.EntryID), types.Deref(r.Rank),
		types.Deref(r.Department), types.Deref(r.Organization), score,
		types.Deref(r.SchoolOfficial), types.Deref(r.DepartmentOfficial), types.Deref(r.DivisionOfficial),
	}
}

// WriteProjectsCSV writes a header and one line per row.
func WriteProjectsCSV(w io.Writer, rows []types.EnrichedProject) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProjectColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range rows {
		if err := cw.Write(ProjectRow(p)); err != nil {
			return fmt.Errorf("writing CSV row %s: %w", p.ProjectNum, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a project sheet and, when people is
// non-empty, a person sheet.
func WriteXLSX(w io.Writer, rows []types.EnrichedProject, people []types.PersonRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", ProjectsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	table := make([][]string, 0, len(rows))
	for _, p := range rows {
		table = append(table, ProjectRow(p))
	}
	if err := writeSheet(f, ProjectsSheet, ProjectColumns, table, header); err != nil {
		return err
	}

	if len(people) > 0 {
		if _, err := f.NewSheet(PeopleSheet); err != nil {
			return fmt.Errorf("adding sheet %s: %w", PeopleSheet, err)
		}
		table = table[:0]
		for _, r := range people {
			table = append(table, PersonRow(r))
		}
		if err := writeSheet(f, PeopleSheet, PersonColumns, table, header); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, columns []string, table [][]string, headerStyle int) error {
	if err := setRow(f, sheet, 1, columns); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	for i, row := range table {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freezing %s header: %w", sheet, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
	return nil
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
