// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grants fetches awarded projects from NIH RePORTER, groups them
// by contact PI and core project number, and joins them with resolved
// PI attributes.
package grants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/grant-attribution/internal/httputil"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// reporterSearchURL is the RePORTER projects search endpoint. Declared as
// a var so tests can substitute an httptest server.
var reporterSearchURL = "https://api.reporter.nih.gov/v2/projects/search"

const (
	// DefaultOrgName is the awardee organization searched by default.
	DefaultOrgName = "UNIVERSITY OF MINNESOTA"

	maxPageSize      = 500
	defaultPageDelay = 1 * time.Second
	defaultTimeout   = 60 * time.Second
)

// includeFields are the RePORTER fields requested for every project.
var includeFields = []string{
	"ProjectNum", "ProjectTitle", "ContactPiName", "FiscalYear", "AwardAmount",
	"ProjectStartDate", "ProjectEndDate", "BudgetStart", "BudgetEnd", "AbstractText",
	"PrincipalInvestigators", "Organization",
}

type searchCriteria struct {
	FiscalYears []int    `json:"fiscal_years"`
	OrgNames    []string `json:"org_names,omitempty"`
	Agencies    []string `json:"agencies,omitempty"`
}

type searchRequest struct {
	Criteria      searchCriteria `json:"criteria"`
	IncludeFields []string       `json:"include_fields"`
	Offset        int            `json:"offset"`
	Limit         int            `json:"limit"`
	SortField     string         `json:"sort_field"`
	SortOrder     string         `json:"sort_order"`
}

type searchResponse struct {
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
	Results []types.Project `json:"results"`
}

// Client queries the RePORTER projects search.
type Client struct {
	HTTP *http.Client
	cfg  types.GrantsConfig
	now  func() time.Time
}

// NewClient returns a Client for cfg, filling defaults for unset fields.
func NewClient(cfg types.GrantsConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.OrgName == "" {
		cfg.OrgName = DefaultOrgName
	}
	return &Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		now:  time.Now,
	}
}

// FiscalYears returns the years a fetch covers: the current year when n
// is 0, otherwise the last n years, newest first.
func FiscalYears(current, n int) []int {
	if n <= 0 {
		return []int{current}
	}
	years := make([]int, n)
	for i := range years {
		years[i] = current - i
	}
	return years
}

// Fetch retrieves every project of the configured organization for the
// configured fiscal years. Pages are requested until a short page
// arrives, with cfg.PageDelay between requests.
//
// A failed request abandons the rest of that fiscal year and the fetch
// moves on to the next one. Every project gathered is returned together
// with the joined per-year errors. A cancelled context stops the fetch.
func (c *Client) Fetch(ctx context.Context, w io.Writer) ([]types.Project, error) {
	log := logging.FromContext(ctx)

	var all []types.Project
	var errs []error
	for _, year := range FiscalYears(c.now().Year(), c.cfg.Years) {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		fmt.Fprintf(w, "Fetching grants for FY %d...\n", year)
		req := searchRequest{
			Criteria: searchCriteria{
				FiscalYears: []int{year},
				OrgNames:    []string{c.cfg.OrgName},
				Agencies:    c.cfg.Agencies,
			},
			IncludeFields: includeFields,
			Limit:         c.cfg.PageSize,
			SortField:     "project_start_date",
			SortOrder:     "desc",
		}

		count := 0
		for {
			page, err := c.search(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					return all, ctx.Err()
				}
				err = fmt.Errorf("fetching FY %d at offset %d: %w", year, req.Offset, err)
				log.Error().Err(err).Int("year", year).Msg("fiscal year failed, continuing")
				fmt.Fprintf(w, "  Error fetching FY %d: %v\n", year, err)
				errs = append(errs, err)
				break
			}
			all = append(all, page.Results...)
			count += len(page.Results)
			log.Debug().Int("year", year).Int("offset", req.Offset).Int("results", len(page.Results)).Msg("page")
			fmt.Fprintf(w, "  Retrieved %d records. Total for FY %d: %d\n", len(page.Results), year, page.Meta.Total)

			if len(page.Results) < req.Limit {
				break
			}
			req.Offset += req.Limit

			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(c.cfg.PageDelay):
			}
		}
		log.Info().Int("year", year).Int("projects", count).Msg("fiscal year fetched")
	}
	return all, errors.Join(errs...)
}

func (c *Client) search(ctx context.Context, sr searchRequest) (*searchResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reporterSearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("RePORTER request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RePORTER returned HTTP %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing RePORTER response: %w", err)
	}
	return &out, nil
}
