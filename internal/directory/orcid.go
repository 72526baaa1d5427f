// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/grant-attribution/internal/httputil"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// orcidAPIBase is the ORCID public API root. Declared as a var so tests
// can substitute an httptest server.
var orcidAPIBase = "https://pub.orcid.org/v3.0"

const (
	defaultORCIDRows = 10
	orcidMaxRetries  = 3
)

// orcidSpecial are the query-syntax characters escaped in search terms.
const orcidSpecial = `+-&|!(){}[]^"~*?:\/ `

type orcidSearchResponse struct {
	NumFound int `json:"num-found"`
	Results  []struct {
		ORCID       string `json:"orcid-id"`
		GivenNames  string `json:"given-names"`
		FamilyNames string `json:"family-names"`
	} `json:"expanded-result"`
}

type orcidDate struct {
	Year *struct {
		Value string `json:"value"`
	} `json:"year"`
}

type orcidEmployment struct {
	DepartmentName string     `json:"department-name"`
	RoleTitle      string     `json:"role-title"`
	EndDate        *orcidDate `json:"end-date"`
	Organization   struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type orcidEmploymentsResponse struct {
	Groups []struct {
		Summaries []struct {
			Employment orcidEmployment `json:"employment-summary"`
		} `json:"summaries"`
	} `json:"affiliation-group"`
}

// ORCIDDirectory is a Directory backed by the public ORCID registry. A
// search asks for researchers by name and affiliation, then reads each
// hit's employments; a researcher counts as a candidate only with a
// current employment at the configured organization, which supplies the
// title and unit label.
type ORCIDDirectory struct {
	HTTP      *http.Client
	UserAgent string

	org  string
	rows int
}

// NewORCID returns an ORCIDDirectory searching cfg.DefaultOrganization.
func NewORCID(cfg types.DirectoryConfig) (*ORCIDDirectory, error) {
	if strings.TrimSpace(cfg.DefaultOrganization) == "" {
		return nil, errors.New("orcid directory needs directory.default_organization")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return &ORCIDDirectory{
		HTTP: &http.Client{Timeout: timeout},
		org:  cfg.DefaultOrganization,
		rows: defaultORCIDRows,
	}, nil
}

// Search returns the researchers matching f who are currently employed
// at the organization. A transport failure wraps ErrUnavailable; a
// researcher whose employments cannot be read is skipped.
func (d *ORCIDDirectory) Search(ctx context.Context, f Filter) ([]types.DirectoryCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := "family-name:" + orcidTerm(f.Surname) +
		" AND given-names:" + orcidTerm(f.GivenName) +
		" AND affiliation-org-name:" + orcidTerm(Exact(d.org))
	endpoint := orcidAPIBase + "/expanded-search/?" + url.Values{
		"q":    {q},
		"rows": {strconv.Itoa(d.rows)},
	}.Encode()

	var sr orcidSearchResponse
	status, err := d.getJSON(ctx, endpoint, &sr)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ORCID search returned HTTP %d", status)
	}

	log := logging.FromContext(ctx)
	var cands []types.DirectoryCandidate
	for _, r := range sr.Results {
		c := types.DirectoryCandidate{Last: r.FamilyNames, First: r.GivenNames, EntryID: r.ORCID}
		if !f.Matches(c) {
			continue
		}
		emp, ok, err := d.currentEmployment(ctx, r.ORCID)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Str("orcid", r.ORCID).Msg("skipping ORCID record")
			continue
		}
		if !ok {
			continue
		}
		c.Title = emp.RoleTitle
		c.UnitLabel = emp.DepartmentName
		c.Organization = emp.Organization.Name
		cands = append(cands, c)
	}
	return cands, nil
}

// currentEmployment returns the first employment without an end date at
// an organization whose name contains the configured one.
func (d *ORCIDDirectory) currentEmployment(ctx context.Context, id string) (orcidEmployment, bool, error) {
	var er orcidEmploymentsResponse
	status, err := d.getJSON(ctx, orcidAPIBase+"/"+url.PathEscape(id)+"/employments", &er)
	if err != nil {
		return orcidEmployment{}, false, err
	}
	if status != http.StatusOK {
		return orcidEmployment{}, false, fmt.Errorf("ORCID employments returned HTTP %d", status)
	}

	org := strings.ToLower(d.org)
	for _, g := range er.Groups {
		for _, s := range g.Summaries {
			e := s.Employment
			if e.EndDate != nil && e.EndDate.Year != nil {
				continue
			}
			if strings.Contains(strings.ToLower(e.Organization.Name), org) {
				return e, true, nil
			}
		}
	}
	return orcidEmployment{}, false, nil
}

// getJSON decodes a 200 response body into v and returns the status.
func (d *ORCIDDirectory) getJSON(ctx context.Context, endpoint string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("creating ORCID request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, d.HTTP, req, orcidMaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("parsing ORCID response: %w", err)
	}
	return resp.StatusCode, nil
}

// Close releases idle connections.
func (d *ORCIDDirectory) Close() error {
	d.HTTP.CloseIdleConnections()
	return nil
}

// orcidTerm renders t in the registry's query syntax: values are
// escaped, multi-word exact values are quoted, prefixes get a trailing
// wildcard.
func orcidTerm(t Term) string {
	if !t.Prefix && strings.ContainsRune(t.Value, ' ') {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(t.Value) + `"`
	}
	var b strings.Builder
	for _, r := range t.Value {
		if strings.ContainsRune(orcidSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if t.Prefix {
		b.WriteByte('*')
	}
	return b.String()
}

var _ Directory = (*ORCIDDirectory)(nil)
