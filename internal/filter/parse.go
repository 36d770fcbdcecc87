package filter

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxRangeExpand bounds how many members a single range token may expand to.
const MaxRangeExpand = 2000

const (
	minStatus = 100
	maxStatus = 999
)

// SplitTokens splits on commas and whitespace, dropping empties.
func SplitTokens(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

type span[T Number] struct{ lo, hi T }

// ParseStatusSpec parses an exclude specification for status codes.
//
// Tokens: exact code (100-999), range NNN-NNN (reversed endpoints are
// swapped), class Nxx. A leading ! removes the token's members from the
// result regardless of token order. Tokens that fail to parse are returned
// in bad, in input order; the remaining tokens still apply.
func ParseStatusSpec(raw string) (Set[int], []string) {
	return parseSpec(raw, true, parseStatusToken)
}

// ParseLengthSpec parses an exclude specification for response lengths:
// non-negative integers with the same ! override.
func ParseLengthSpec(raw string) (Set[int64], []string) {
	return parseSpec(raw, true, parseLengthToken)
}

// parseInclude reads an include field, where ! is tolerated and ignored.
func parseInclude[T Number](raw string, tok func(string) (span[T], bool)) (Set[T], []string) {
	return parseSpec(raw, false, tok)
}

func parseSpec[T Number](raw string, bangRemoves bool, tok func(string) (span[T], bool)) (Set[T], []string) {
	out := Set[T]{}
	var bad []string
	var removals []span[T]

	for _, t0 := range SplitTokens(raw) {
		t := t0
		neg := false
		if strings.HasPrefix(t, "!") {
			neg = true
			t = t[1:]
		}
		if t == "" {
			continue
		}

		sp, ok := tok(t)
		if !ok {
			bad = append(bad, t0)
			continue
		}
		if neg && bangRemoves {
			removals = append(removals, sp)
			continue
		}
		out.addRange(sp.lo, sp.hi)
	}

	for _, sp := range removals {
		out.removeRange(sp.lo, sp.hi)
	}
	return out, bad
}

func parseStatusToken(t string) (span[int], bool) {
	switch {
	case isDigits(t) && len(t) == 3:
		n, _ := strconv.Atoi(t)
		if n < minStatus || n > maxStatus {
			return span[int]{}, false
		}
		return span[int]{n, n}, true

	case len(t) == 7 && t[3] == '-' && isDigits(t[:3]) && isDigits(t[4:]):
		a, _ := strconv.Atoi(t[:3])
		b, _ := strconv.Atoi(t[4:])
		if a < minStatus || a > maxStatus || b < minStatus || b > maxStatus {
			return span[int]{}, false
		}
		if a > b {
			a, b = b, a
		}
		if b-a+1 > MaxRangeExpand {
			return span[int]{}, false
		}
		return span[int]{a, b}, true

	case len(t) == 3 && t[0] >= '1' && t[0] <= '9' && strings.EqualFold(t[1:], "xx"):
		lo := int(t[0]-'0') * 100
		return span[int]{lo, lo + 99}, true
	}
	return span[int]{}, false
}

func parseLengthToken(t string) (span[int64], bool) {
	if !isDigits(t) {
		return span[int64]{}, false
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil || n < 0 || n == math.MaxInt64 {
		return span[int64]{}, false
	}
	return span[int64]{n, n}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// BadSummary formats bad tokens for display, showing at most eight.
func BadSummary(bad []string) string {
	if len(bad) == 0 {
		return ""
	}
	shown := bad
	if len(shown) > 8 {
		shown = shown[:8]
	}
	s := "Invalid token(s): " + strings.Join(shown, ", ")
	if extra := len(bad) - len(shown); extra > 0 {
		s += " (+" + strconv.Itoa(extra) + " more)"
	}
	return s
}
