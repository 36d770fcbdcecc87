package filter

import (
	"math"
	"strings"

	"github.com/Pusher91/truderwatch/internal/domain"
)

// Server-side status filters only accept 100-599.
const (
	serverStatusLo = 100
	serverStatusHi = 599
)

// Dimension is one filterable field: an include list, an exclude set with
// ! overrides already applied, and the tokens that failed to parse.
type Dimension[T Number] struct {
	IncludeText string
	Include     Set[T]
	IncludeBad  []string

	ExcludeText string
	Exclude     Set[T]
	ExcludeBad  []string
}

func (d Dimension[T]) Bad() []string {
	if len(d.IncludeBad) == 0 {
		return d.ExcludeBad
	}
	return append(append([]string(nil), d.IncludeBad...), d.ExcludeBad...)
}

// Spec is the full findings filter: free-text search plus the status and
// length dimensions.
type Spec struct {
	Search string
	Status Dimension[int]
	Length Dimension[int64]
}

func (s *Spec) SetSearch(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == s.Search {
		return false
	}
	s.Search = raw
	return true
}

func (s *Spec) SetStatusInclude(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == s.Status.IncludeText && s.Status.Include != nil {
		return false
	}
	s.Status.IncludeText = raw
	s.Status.Include, s.Status.IncludeBad = parseInclude(raw, parseStatusToken)
	return true
}

func (s *Spec) SetStatusExclude(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == s.Status.ExcludeText && s.Status.Exclude != nil {
		return false
	}
	s.Status.ExcludeText = raw
	s.Status.Exclude, s.Status.ExcludeBad = ParseStatusSpec(raw)
	return true
}

func (s *Spec) SetLengthInclude(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == s.Length.IncludeText && s.Length.Include != nil {
		return false
	}
	s.Length.IncludeText = raw
	s.Length.Include, s.Length.IncludeBad = parseInclude(raw, parseLengthToken)
	return true
}

func (s *Spec) SetLengthExclude(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == s.Length.ExcludeText && s.Length.Exclude != nil {
		return false
	}
	s.Length.ExcludeText = raw
	s.Length.Exclude, s.Length.ExcludeBad = ParseLengthSpec(raw)
	return true
}

// Query renders the spec as server-side filter strings. Sets are sent in
// compacted form so the server sees the same members the client matches
// against, with ! overrides already resolved.
func (s Spec) Query() domain.FindingsQuery {
	return domain.FindingsQuery{
		Q:             s.Search,
		StatusInclude: s.Status.Include.Compact(serverStatusLo, serverStatusHi),
		StatusExclude: s.Status.Exclude.Compact(serverStatusLo, serverStatusHi),
		LengthInclude: s.Length.Include.Compact(0, math.MaxInt64-1),
		LengthExclude: s.Length.Exclude.Compact(0, math.MaxInt64-1),
	}
}

// Key identifies the user-visible filter text, for change detection.
func (s Spec) Key() string {
	return strings.Join([]string{
		s.Search,
		s.Status.IncludeText, s.Status.ExcludeText,
		s.Length.IncludeText, s.Length.ExcludeText,
	}, "|")
}

func (s Spec) Matcher() Matcher {
	return Matcher{
		status: s.Status.Exclude,
		length: s.Length.Exclude,
		tokens: SearchTokens(s.Search),
	}
}
