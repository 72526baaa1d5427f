// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package roster loads refined person records and joined project rows into
// a SQLite database and answers unit-scoped queries over them.
package roster

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// DefaultFile is the database file name inside the data directory.
const DefaultFile = "roster.db"

const defaultMaxResults = 200

// Store manages the roster SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the roster database at path and creates the schema
// if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, maxResults: defaultMaxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS people (
			name TEXT PRIMARY KEY,
			status TEXT,
			entry_id TEXT,
			rank TEXT,
			department TEXT,
			organization TEXT,
			score INTEGER,
			school_official TEXT,
			department_official TEXT,
			division_official TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_people_unit ON people(school_official, department_official, division_official)`,
		`CREATE TABLE IF NOT EXISTS projects (
			project_num TEXT PRIMARY KEY,
			core_project_num TEXT,
			title TEXT,
			pi_name TEXT NOT NULL REFERENCES people(name),
			fiscal_year INTEGER,
			award_amount REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_pi ON projects(pi_name)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	People   int
	Projects int
	Stubs    int // contact PIs without a person record
}

// Ingest upserts people and project rows in one transaction. A project whose
// contact PI has no person record gets a stub person row carrying only the
// name, so that every project stays attributable.
func (s *Store) Ingest(ctx context.Context, people []types.PersonRecord, rows []types.EnrichedProject, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	person, err := tx.PrepareContext(ctx,
		`INSERT INTO people (name, status, entry_id, rank, department, organization, score,
			school_official, department_official, division_official)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			status=excluded.status, entry_id=excluded.entry_id, rank=excluded.rank,
			department=excluded.department, organization=excluded.organization, score=excluded.score,
			school_official=excluded.school_official, department_official=excluded.department_official,
			division_official=excluded.division_official`)
	if err != nil {
		return summary, fmt.Errorf("preparing person upsert: %w", err)
	}
	defer person.Close()

	for _, r := range people {
		var score any
		if r.Score != nil {
			score = *r.Score
		}
		if _, err := person.ExecContext(ctx,
			r.RawName, string(r.Status), r.EntryID, r.Rank, r.Department, r.Organization, score,
			r.SchoolOfficial, r.DepartmentOfficial, r.DivisionOfficial,
		); err != nil {
			return summary, fmt.Errorf("upserting person %q: %w", r.RawName, err)
		}
		summary.People++
	}

	stub, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO people (name) VALUES (?)`)
	if err != nil {
		return summary, fmt.Errorf("preparing person stub: %w", err)
	}
	defer stub.Close()

	project, err := tx.PrepareContext(ctx,
		`INSERT INTO projects (project_num, core_project_num, title, pi_name, fiscal_year, award_amount)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_num) DO UPDATE SET
			core_project_num=excluded.core_project_num, title=excluded.title, pi_name=excluded.pi_name,
			fiscal_year=excluded.fiscal_year, award_amount=excluded.award_amount`)
	if err != nil {
		return summary, fmt.Errorf("preparing project upsert: %w", err)
	}
	defer project.Close()

	for _, p := range rows {
		if p.ProjectNum == "" {
			continue
		}
		pi := strings.TrimSpace(p.ContactPIName)
		res, err := stub.ExecContext(ctx, pi)
		if err != nil {
			return summary, fmt.Errorf("inserting person stub %q: %w", pi, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			summary.Stubs++
		}
		if _, err := project.ExecContext(ctx,
			p.ProjectNum, p.CoreProjectNum, p.ProjectTitle, pi, p.FiscalYear, p.AwardAmount,
		); err != nil {
			return summary, fmt.Errorf("upserting project %s: %w", p.ProjectNum, err)
		}
		summary.Projects++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing: %w", err)
	}

	fmt.Fprintf(w, "people: %d, projects: %d, stubs: %d\n", summary.People, summary.Projects, summary.Stubs)
	return summary, nil
}

// QueryOptions filters roster queries. Empty fields match everything.
type QueryOptions struct {
	School     string
	Department string
	Division   string

	// Title keeps people with at least one project whose title contains
	// Title (case-insensitive).
	Title string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Entry is one person in a query result with their grant totals.
type Entry struct {
	Name       string  `json:"name" yaml:"name"`
	Rank       string  `json:"rank,omitempty" yaml:"rank,omitempty"`
	School     string  `json:"school,omitempty" yaml:"school,omitempty"`
	Department string  `json:"department,omitempty" yaml:"department,omitempty"`
	Division   string  `json:"division,omitempty" yaml:"division,omitempty"`
	EntryID    string  `json:"entry_id,omitempty" yaml:"entry_id,omitempty"`
	Projects   int     `json:"projects" yaml:"projects"`
	Funding    float64 `json:"funding" yaml:"funding"`
}

// Query returns people matching opts ordered by name.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT p.name, p.rank, p.school_official, p.department_official, p.division_official, p.entry_id,
			COUNT(pr.project_num), COALESCE(SUM(pr.award_amount), 0)
		FROM people p
		LEFT JOIN projects pr ON pr.pi_name = p.name
		WHERE 1=1`)

	if opts.School != "" {
		qb.WriteString(` AND p.school_official = ?`)
		args = append(args, opts.School)
	}
	if opts.Department != "" {
		qb.WriteString(` AND p.department_official = ?`)
		args = append(args, opts.Department)
	}
	if opts.Division != "" {
		qb.WriteString(` AND p.division_official = ?`)
		args = append(args, opts.Division)
	}
	if opts.Title != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM projects t WHERE t.pi_name = p.name AND t.title LIKE ? ESCAPE '\')`)
		args = append(args, "%"+escapeLike(opts.Title)+"%")
	}

	qb.WriteString(` GROUP BY p.name ORDER BY p.name LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying roster: %w", err)
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		var rank, school, dept, division, entry sql.NullString
		if err := rows.Scan(&e.Name, &rank, &school, &dept, &division, &entry, &e.Projects, &e.Funding); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Rank, e.School, e.Department, e.Division, e.EntryID =
			rank.String, school.String, dept.String, division.String, entry.String
		results = append(results, e)
	}
	return results, rows.Err()
}

// UnitTotal aggregates people and grants for one school and department.
type UnitTotal struct {
	School     string  `json:"school" yaml:"school"`
	Department string  `json:"department" yaml:"department"`
	People     int     `json:"people" yaml:"people"`
	Projects   int     `json:"projects" yaml:"projects"`
	Funding    float64 `json:"funding" yaml:"funding"`
}

// Units returns per-department totals ordered by school then department.
// People without a resolved school are omitted.
func (s *Store) Units(ctx context.Context) ([]UnitTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.school_official, COALESCE(p.department_official, ''),
			COUNT(DISTINCT p.name), COUNT(pr.project_num), COALESCE(SUM(pr.award_amount), 0)
		FROM people p
		LEFT JOIN projects pr ON pr.pi_name = p.name
		WHERE p.school_official IS NOT NULL
		GROUP BY p.school_official, p.department_official
		ORDER BY p.school_official, p.department_official`)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var out []UnitTotal
	for rows.Next() {
		var u UnitTotal
		if err := rows.Scan(&u.School, &u.Department, &u.People, &u.Projects, &u.Funding); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// WriteEntries prints one line per entry.
func WriteEntries(w io.Writer, entries []Entry) {
	for _, e := range entries {
		unit := strings.Join(nonEmpty(e.School, e.Department, e.Division), " / ")
		if unit == "" {
			unit = "(unresolved)"
		}
		fmt.Fprintf(w, "%-32s %-28s %3d grants  $%.0f  %s\n", e.Name, e.Rank, e.Projects, e.Funding, unit)
	}
	fmt.Fprintf(w, "\n%d PIs\n", len(entries))
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
