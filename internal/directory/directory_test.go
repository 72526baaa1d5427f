// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// --- test directories ---

// memDirectory answers searches by evaluating the filter against a fixed
// entry list, recording every call.
type memDirectory struct {
	entries []types.DirectoryCandidate
	calls   []Filter
	errs    map[int]error // 1-based call number -> error
	closed  bool
}

func (m *memDirectory) Search(_ context.Context, f Filter) ([]types.DirectoryCandidate, error) {
	m.calls = append(m.calls, f)
	if err, ok := m.errs[len(m.calls)]; ok {
		return nil, err
	}
	var out []types.DirectoryCandidate
	for _, e := range m.entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memDirectory) Close() error {
	m.closed = true
	return nil
}

// scriptedDirectory returns a canned candidate list per pass regardless
// of the filter, to model servers whose matching differs from ours.
type scriptedDirectory struct {
	passes [][]types.DirectoryCandidate
	calls  int
}

func (s *scriptedDirectory) Search(_ context.Context, _ Filter) ([]types.DirectoryCandidate, error) {
	s.calls++
	if s.calls > len(s.passes) {
		return nil, nil
	}
	return s.passes[s.calls-1], nil
}

func cand(last, first, id string) types.DirectoryCandidate {
	return types.DirectoryCandidate{
		Last: last, First: first, EntryID: id,
		Title: "Professor", UnitLabel: "Med Cardiology", Organization: "University of Minnesota",
	}
}

func name(last, first string) types.NormalizedName {
	return types.NormalizedName{Last: last, First: first}
}

// --- Filters ---

func TestFiltersOrder(t *testing.T) {
	got := Filters(name("Redish", "David"))
	require.Len(t, got, 4)
	assert.Equal(t, "(&(sn=Redish)(givenName=David))", got[0].String())
	assert.Equal(t, "(&(sn=Redish)(givenName=David*))", got[1].String())
	assert.Equal(t, "(&(sn=Redish*)(givenName=David*))", got[2].String())
	assert.Equal(t, "(&(sn=Redish*)(givenName=D*))", got[3].String())
}

func TestFiltersDropsDuplicatePass(t *testing.T) {
	got := Filters(name("Doe", "J"))
	assert.Len(t, got, 3)
}

func TestFiltersWithoutGivenName(t *testing.T) {
	assert.Empty(t, Filters(name("Madonna", "")))
	assert.Empty(t, Filters(name("", "John")))
}

func TestFilterEscaping(t *testing.T) {
	f := Filter{Surname: Exact("O(Neil)*"), GivenName: PrefixOf("A\\B")}
	assert.Equal(t, `(&(sn=O\28Neil\29\2a)(givenName=A\5cB*))`, f.String())
}

func TestFilterMatches(t *testing.T) {
	f := Filter{Surname: Exact("REDISH"), GivenName: PrefixOf("dav")}
	assert.True(t, f.Matches(cand("Redish", "David", "1")))
	assert.False(t, f.Matches(cand("Redishson", "David", "2")))
	assert.False(t, f.Matches(cand("Redish", "Dan", "3")))
}

// --- Accept / Score ---

func TestAccept(t *testing.T) {
	n := name("REDISH", "DAVID")
	tests := []struct {
		name string
		c    types.DirectoryCandidate
		want bool
	}{
		{"exact", cand("Redish", "David", "1"), true},
		{"surname contains query", cand("Van Redish", "Dave", "2"), true},
		{"different surname", cand("Reddish", "David", "3"), false},
		{"missing given name", cand("Redish", "", "4"), false},
		{"different initial", cand("Redish", "Alan", "5"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accept(tt.c, n))
		})
	}
}

func TestScore(t *testing.T) {
	n := name("REDISH", "DAVID")
	assert.Equal(t, types.ScoreExact, Score(cand("Redish", "david", "1"), n))
	assert.Equal(t, types.ScorePrefix, Score(cand("Redish", "Davidson", "2"), n))
	assert.Equal(t, types.ScoreInitial, Score(cand("Redish", "Dan", "3"), n))
}

// --- Match ---

func TestMatchExactFirstPass(t *testing.T) {
	dir := &memDirectory{entries: []types.DirectoryCandidate{
		cand("Redish", "Davidson", "uid=dson"),
		cand("Redish", "David", "uid=dredish"),
	}}

	out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, types.ScoreExact, out.Result.Score)
	assert.Equal(t, "uid=dredish", out.Result.EntryID)
	assert.Equal(t, "Professor", out.Result.RankTitle)
	assert.Equal(t, "Med Cardiology", out.Result.RawUnitLabel)
	assert.Len(t, dir.calls, 1, "no later pass after an exact match")
}

func TestMatchExactRegardlessOfOrder(t *testing.T) {
	exact := cand("Redish", "David", "uid=exact")
	prefix := cand("Redish", "Davidson", "uid=prefix")
	initial := cand("Redish", "Dan", "uid=initial")

	orders := [][]types.DirectoryCandidate{
		{exact, prefix, initial},
		{prefix, exact, initial},
		{initial, prefix, exact},
	}
	for _, pass := range orders {
		dir := &scriptedDirectory{passes: [][]types.DirectoryCandidate{pass}}
		out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
		require.NoError(t, err)
		require.True(t, out.Found)
		assert.Equal(t, types.ScoreExact, out.Result.Score)
		assert.Equal(t, "uid=exact", out.Result.EntryID)
		assert.Equal(t, 1, dir.calls)
	}
}

func TestMatchExactInLaterPassStopsSearch(t *testing.T) {
	dir := &scriptedDirectory{passes: [][]types.DirectoryCandidate{
		nil,
		{cand("Redish", "David", "uid=exact")},
		{cand("Redish", "David", "uid=other")},
	}}
	out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.NoError(t, err)
	assert.Equal(t, "uid=exact", out.Result.EntryID)
	assert.Equal(t, 2, dir.calls)
	assert.Equal(t, 2, out.Passes)
}

func TestMatchBestAcrossPasses(t *testing.T) {
	dir := &scriptedDirectory{passes: [][]types.DirectoryCandidate{
		nil,
		{cand("Redish", "Davida", "uid=prefix")},
		{cand("Redish", "Dan", "uid=initial")},
		{cand("Redish", "Davidson", "uid=later-prefix")},
	}}
	out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, types.ScorePrefix, out.Result.Score)
	assert.Equal(t, "uid=prefix", out.Result.EntryID, "ties keep the first found")
	assert.Equal(t, 4, out.Passes)
}

func TestMatchNotFound(t *testing.T) {
	dir := &memDirectory{entries: []types.DirectoryCandidate{
		cand("Smith", "David", "uid=smith"),
		cand("Redish", "Alan", "uid=alan"),
	}}
	out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, 4, out.Passes)
}

func TestMatchNoGivenNameIssuesNoSearch(t *testing.T) {
	dir := &memDirectory{entries: []types.DirectoryCandidate{cand("Madonna", "Louise", "uid=m")}}
	out, err := Match(context.Background(), dir, name("MADONNA", ""))
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Empty(t, dir.calls)
}

func TestMatchPassErrorIsRecoverable(t *testing.T) {
	dir := &memDirectory{
		entries: []types.DirectoryCandidate{cand("Redish", "Davidson", "uid=dson")},
		errs:    map[int]error{1: errors.New("filter rejected")},
	}
	out, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, "uid=dson", out.Result.EntryID)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, dir.calls[0], out.Errors[0].Filter)
}

func TestMatchUnavailableAborts(t *testing.T) {
	dir := &memDirectory{errs: map[int]error{2: ErrUnavailable}}
	_, err := Match(context.Background(), dir, name("REDISH", "DAVID"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Len(t, dir.calls, 2)
}

func TestMatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := &memDirectory{}
	_, err := Match(ctx, dir, name("REDISH", "DAVID"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dir.calls)
}

// --- LDAP entry mapping ---

func TestCandidateFromEntry(t *testing.T) {
	e := ldap.NewEntry("uid=dredish,ou=People,o=University of Minnesota,c=US", map[string][]string{
		"sn":        {"Redish"},
		"givenName": {"David"},
		"title":     {"Professor"},
		"ou":        {"Med Cardiology"},
	})
	c := candidateFromEntry(e, "University of Minnesota")
	assert.Equal(t, types.DirectoryCandidate{
		Last: "Redish", First: "David", Title: "Professor", UnitLabel: "Med Cardiology",
		Organization: "University of Minnesota",
		EntryID:      "uid=dredish,ou=People,o=University of Minnesota,c=US",
	}, c)
}
