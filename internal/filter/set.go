package filter

import (
	"sort"
	"strconv"
	"strings"
)

type Number interface {
	~int | ~int64
}

// Set is a membership set of status codes or byte lengths.
type Set[T Number] map[T]struct{}

func (s Set[T]) Has(v T) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Set[T]) addRange(lo, hi T) {
	for v := lo; v <= hi; v++ {
		s[v] = struct{}{}
	}
}

func (s Set[T]) removeRange(lo, hi T) {
	for v := lo; v <= hi; v++ {
		delete(s, v)
	}
}

// Compact renders the members within [lo, hi] as comma-separated exact
// values and inclusive ranges, e.g. "200,400-403,405-499".
func (s Set[T]) Compact(lo, hi T) string {
	vals := s.Sorted()
	var sb strings.Builder
	for i := 0; i < len(vals); {
		a := vals[i]
		if a < lo || a > hi {
			i++
			continue
		}
		b := a
		j := i + 1
		for j < len(vals) && vals[j] == b+1 && vals[j] <= hi {
			b = vals[j]
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(a), 10))
		if b != a {
			sb.WriteByte('-')
			sb.WriteString(strconv.FormatInt(int64(b), 10))
		}
		i = j
	}
	return sb.String()
}
