package remotetest

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

const maxSearchTokens = 20

type number interface{ ~int | ~int64 }

// ranges is an inclusive set of intervals; a zero value matches nothing and
// is reported as disabled.
type ranges[T number] struct {
	on  bool
	ivs [][2]T
}

func (m ranges[T]) has(v T) bool {
	for _, iv := range m.ivs {
		if v >= iv[0] && v <= iv[1] {
			return true
		}
	}
	return false
}

func parseStatusRanges(raw, field string) (ranges[int], *api.APIError) {
	return parseRanges(raw, field, func(tok string) (int, int, bool) {
		t := strings.ToLower(tok)
		if len(t) == 3 && t[1:] == "xx" && t[0] >= '1' && t[0] <= '5' {
			lo := int(t[0]-'0') * 100
			return lo, lo + 99, true
		}
		lo, hi, ok := splitRange(t, strconv.Atoi)
		return lo, hi, ok && lo >= 100 && hi <= 599
	})
}

func parseLengthRanges(raw, field string) (ranges[int64], *api.APIError) {
	return parseRanges(raw, field, func(tok string) (int64, int64, bool) {
		return splitRange(tok, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	})
}

func parseRanges[T number](raw, field string, tok func(string) (T, T, bool)) (ranges[T], *api.APIError) {
	var out ranges[T]
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lo, hi, ok := tok(p)
		if !ok {
			return ranges[T]{}, api.ValidationError(map[string]string{field: "invalid value: " + p})
		}
		out.on = true
		out.ivs = append(out.ivs, [2]T{lo, hi})
	}
	return out, nil
}

func splitRange[T number](t string, conv func(string) (T, error)) (T, T, bool) {
	a, b, isRange := strings.Cut(t, "-")
	lo, err := conv(strings.TrimSpace(a))
	if err != nil || lo < 0 {
		return 0, 0, false
	}
	if !isRange {
		return lo, lo, true
	}
	hi, err := conv(strings.TrimSpace(b))
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

func searchTokens(q url.Values) []string {
	raw := q.Get("q")
	if strings.TrimSpace(raw) == "" {
		raw = q.Get("search")
	}
	toks := strings.Fields(strings.ToLower(raw))
	if len(toks) > maxSearchTokens {
		toks = toks[:maxSearchTokens]
	}
	return toks
}

// findingKeep mirrors the remote filter: search tokens AND over
// target/path/url, includes first, excludes win on overlap.
func findingKeep(q url.Values) (func(domain.Finding) bool, *api.APIError) {
	toks := searchTokens(q)

	stInc, apiErr := parseStatusRanges(q.Get("statusInclude"), "statusInclude")
	if apiErr != nil {
		return nil, apiErr
	}
	stExc, apiErr := parseStatusRanges(q.Get("statusExclude"), "statusExclude")
	if apiErr != nil {
		return nil, apiErr
	}
	lenInc, apiErr := parseLengthRanges(q.Get("lengthInclude"), "lengthInclude")
	if apiErr != nil {
		return nil, apiErr
	}
	lenExc, apiErr := parseLengthRanges(q.Get("lengthExclude"), "lengthExclude")
	if apiErr != nil {
		return nil, apiErr
	}

	if len(toks) == 0 && !stInc.on && !stExc.on && !lenInc.on && !lenExc.on {
		return nil, nil
	}

	return func(f domain.Finding) bool {
		hay := strings.ToLower(f.Target + "\n" + f.Path + "\n" + f.URL)
		for _, tok := range toks {
			if !strings.Contains(hay, tok) {
				return false
			}
		}
		if stInc.on && !stInc.has(f.Status) {
			return false
		}
		if stExc.on && stExc.has(f.Status) {
			return false
		}
		if lenInc.on && (f.Length < 0 || !lenInc.has(f.Length)) {
			return false
		}
		if lenExc.on && f.Length >= 0 && lenExc.has(f.Length) {
			return false
		}
		return true
	}, nil
}
