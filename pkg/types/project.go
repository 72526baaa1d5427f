// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Project is one grant record as returned by the NIH RePORTER projects
// search, restricted to the include_fields the pipeline requests.
type Project struct {
	ProjectNum       string  `json:"project_num"`
	ProjectNumClip   string  `json:"project_num_clip,omitempty"`
	CoreProjectNum   string  `json:"core_project_num,omitempty"`
	ProjectTitle     string  `json:"project_title,omitempty"`
	ContactPIName    string  `json:"contact_pi_name"`
	FiscalYear       int     `json:"fiscal_year,omitempty"`
	AwardAmount      float64 `json:"award_amount,omitempty"`
	ProjectStartDate string  `json:"project_start_date,omitempty"`
	ProjectEndDate   string  `json:"project_end_date,omitempty"`
	BudgetStart      string  `json:"budget_start,omitempty"`
	BudgetEnd        string  `json:"budget_end,omitempty"`
	AbstractText     string  `json:"abstract_text,omitempty"`

	PrincipalInvestigators []Investigator `json:"principal_investigators,omitempty"`
	Organization           *ProjectOrg    `json:"organization,omitempty"`
}

// Investigator is one entry of a project's principal_investigators list.
type Investigator struct {
	ProfileID  int64  `json:"profile_id,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	IsContact  bool   `json:"is_contact_pi,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Title      string `json:"title,omitempty"`
}

// ProjectOrg is the awardee organization block of a project.
type ProjectOrg struct {
	OrgName  string `json:"org_name,omitempty"`
	OrgCity  string `json:"org_city,omitempty"`
	OrgState string `json:"org_state,omitempty"`
}

// ProjectsByPI groups projects by contact PI name, then by core project
// number. Each inner slice is sorted by clipped project number.
type ProjectsByPI map[string]map[string][]Project

// EnrichedProject is one joined output row: a project plus the resolved
// attributes of its contact PI.
type EnrichedProject struct {
	Project

	PIRank               *string `json:"pi_rank"`
	PIDepartment         *string `json:"pi_department"`
	PIOrganization       *string `json:"pi_organization"`
	PISchoolOfficial     *string `json:"pi_school_official"`
	PIDepartmentOfficial *string `json:"pi_department_official"`
	PIDivisionOfficial   *string `json:"pi_division_official"`
	PIEntryID            *string `json:"pi_entry_id"`
}
