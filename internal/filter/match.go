package filter

import (
	"net/url"
	"strings"

	"github.com/Pusher91/truderwatch/internal/domain"
)

// Matcher is the render-time predicate. It never prunes stored records.
type Matcher struct {
	status Set[int]
	length Set[int64]
	tokens []string
}

func NewMatcher(statusExclude Set[int], lengthExclude Set[int64], search string) Matcher {
	return Matcher{status: statusExclude, length: lengthExclude, tokens: SearchTokens(search)}
}

func (m Matcher) Match(f domain.Finding) bool {
	if m.status.Has(f.Status) {
		return false
	}
	if f.Length >= 0 && m.length.Has(f.Length) {
		return false
	}
	if len(m.tokens) == 0 {
		return true
	}

	loc := f.Location()
	hay := strings.ToLower(loc + " " + HostKey(loc) + " " + f.Path)
	for _, t := range m.tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

func (m Matcher) Filter(items []domain.Finding) []domain.Finding {
	out := make([]domain.Finding, 0, len(items))
	for _, f := range items {
		if m.Match(f) {
			out = append(out, f)
		}
	}
	return out
}

// Any reports whether at least one item passes.
func (m Matcher) Any(items []domain.Finding) bool {
	for _, f := range items {
		if m.Match(f) {
			return true
		}
	}
	return false
}

func SearchTokens(raw string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
}

// HostKey is the lowercased hostname of a target or URL, without a leading
// "www.". Bare hosts are accepted.
func HostKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	raw := s
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	host := ""
	if u, err := url.Parse(raw); err == nil {
		host = u.Hostname()
	}
	if host == "" {
		host = strings.SplitN(strings.TrimPrefix(s, "//"), "/", 2)[0]
	}

	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
