// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package names parses raw investigator names into a canonical
// (last, first, initials) form and provides the case-insensitive string
// comparisons the rest of the pipeline uses for names.
//
// Two raw layouts are recognised:
//
//	"LAST, FIRST [MIDDLE...]"   grant-record style
//	"First [Middle...] Last"    free-text style
//
// In the comma layout, leading bare initials ("A", "A.") are skipped so
// that "REDISH, A DAVID" yields first name "DAVID".
package names

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// ErrNoSurname is matched by every ParseError.
var ErrNoSurname = errors.New("no usable surname")

// ParseError reports a raw name from which no surname could be extracted.
// Callers treat it the same as a directory "not found".
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing name %q: %v", e.Raw, ErrNoSurname)
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrNoSurname
}

// Normalize parses raw into a NormalizedName.
func Normalize(raw string) (types.NormalizedName, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return types.NormalizedName{}, &ParseError{Raw: raw}
	}

	if before, after, ok := strings.Cut(s, ","); ok {
		last := strings.TrimSpace(before)
		if last == "" {
			return types.NormalizedName{}, &ParseError{Raw: raw}
		}
		first, initials := pickGiven(strings.Fields(after))
		return types.NormalizedName{Last: last, First: first, Initials: initials}, nil
	}

	tokens := strings.Fields(s)
	n := types.NormalizedName{Last: tokens[len(tokens)-1]}
	if len(tokens) > 1 {
		n.First = tokens[0]
		if len(tokens) > 2 {
			n.Initials = append([]string(nil), tokens[1:len(tokens)-1]...)
		}
	}
	return n, nil
}

// pickGiven returns the first usable given name among tokens and the
// remaining tokens in order. A bare initial is skipped unless it is the
// last token left.
func pickGiven(tokens []string) (string, []string) {
	for i, tok := range tokens {
		if isBareInitial(tok) && i < len(tokens)-1 {
			continue
		}
		var rest []string
		rest = append(rest, tokens[:i]...)
		rest = append(rest, tokens[i+1:]...)
		if len(rest) == 0 {
			rest = nil
		}
		return tok, rest
	}
	return "", nil
}

// isBareInitial reports whether tok is a single letter, optionally
// followed by a period.
func isBareInitial(tok string) bool {
	tok = strings.TrimSuffix(tok, ".")
	r, size := utf8.DecodeRuneInString(tok)
	return size > 0 && size == len(tok) && unicode.IsLetter(r)
}

// Fold returns the case-folded form of s used for every name comparison.
// A Caser carries state, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal ignoring case.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// HasPrefixFold reports whether s starts with prefix ignoring case.
func HasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(Fold(s), Fold(prefix))
}

// ContainsFold reports whether substr occurs in s ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// FirstRune returns the case-folded leading character of s, or "" when s
// is empty.
func FirstRune(s string) string {
	r, size := utf8.DecodeRuneInString(Fold(s))
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(r)
}

// Display renders an upper-case grant-record name in title case
// ("REDISH, A DAVID" -> "Redish, A David").
func Display(raw string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(raw)))
}
