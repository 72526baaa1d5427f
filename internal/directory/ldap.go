// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package directory

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

const defaultConnectTimeout = 10 * time.Second

// searchAttributes are the entry attributes requested from the directory.
var searchAttributes = []string{"cn", "sn", "givenName", "mail", "title", "ou", "o", "displayName"}

// LDAPDirectory is a Directory backed by one LDAP connection. It is not
// safe for concurrent use; the lookup stage issues searches sequentially.
type LDAPDirectory struct {
	conn       *ldap.Conn
	baseDN     string
	defaultOrg string
}

// DialLDAP connects to cfg.URL and binds. When credentials are configured
// it tries an authenticated bind first and falls back to an anonymous
// bind. Any failure to obtain a bound connection wraps ErrUnavailable.
func DialLDAP(ctx context.Context, cfg types.DirectoryConfig) (*LDAPDirectory, error) {
	log := logging.FromContext(ctx)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrUnavailable, cfg.URL, err)
	}

	bound := false
	if cfg.BindDN != "" && cfg.Password != "" {
		if err := conn.Bind(cfg.BindDN, cfg.Password); err != nil {
			log.Warn().Err(err).Str("bind_dn", cfg.BindDN).Msg("authenticated bind failed, trying anonymous")
		} else {
			bound = true
			log.Info().Str("url", cfg.URL).Str("login", cfg.Login).Msg("connected to directory")
		}
	}
	if !bound {
		if err := conn.UnauthenticatedBind(""); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: anonymous bind to %s: %v", ErrUnavailable, cfg.URL, err)
		}
		log.Info().Str("url", cfg.URL).Msg("connected to directory anonymously")
	}

	return &LDAPDirectory{conn: conn, baseDN: cfg.BaseDN, defaultOrg: cfg.DefaultOrganization}, nil
}

// Search runs f below the base DN. A missing base object yields no
// results; a lost connection wraps ErrUnavailable.
func (d *LDAPDirectory) Search(ctx context.Context, f Filter) ([]types.DirectoryCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		d.baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		f.String(),
		searchAttributes,
		nil,
	)
	res, err := d.conn.Search(req)
	if err != nil {
		switch {
		case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
			return nil, nil
		case ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	cands := make([]types.DirectoryCandidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		cands = append(cands, candidateFromEntry(e, d.defaultOrg))
	}
	return cands, nil
}

func candidateFromEntry(e *ldap.Entry, defaultOrg string) types.DirectoryCandidate {
	org := e.GetAttributeValue("o")
	if org == "" {
		org = defaultOrg
	}
	return types.DirectoryCandidate{
		Last:         e.GetAttributeValue("sn"),
		First:        e.GetAttributeValue("givenName"),
		Title:        e.GetAttributeValue("title"),
		UnitLabel:    e.GetAttributeValue("ou"),
		Organization: org,
		EntryID:      e.DN,
	}
}

// Close unbinds and closes the connection.
func (d *LDAPDirectory) Close() error {
	err := d.conn.Unbind()
	d.conn.Close()
	return err
}
