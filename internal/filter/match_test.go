package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
)

func TestMatcher_StatusExclude(t *testing.T) {
	var s Spec
	s.SetStatusExclude("500 502-503")
	m := s.Matcher()

	require.False(t, m.Match(domain.Finding{Status: 502, Length: 10}))
	require.True(t, m.Match(domain.Finding{Status: 501, Length: 10}))
	require.False(t, m.Match(domain.Finding{Status: 500}))
}

func TestMatcher_LengthExclude(t *testing.T) {
	var s Spec
	s.SetLengthExclude("0 1234")
	m := s.Matcher()

	require.False(t, m.Match(domain.Finding{Status: 200, Length: 1234}))
	require.False(t, m.Match(domain.Finding{Status: 200, Length: 0}))
	require.True(t, m.Match(domain.Finding{Status: 200, Length: 1}))
	require.True(t, m.Match(domain.Finding{Status: 200, Length: -1}))
}

func TestMatcher_Search(t *testing.T) {
	f := domain.Finding{
		Target: "https://www.Example.com",
		Path:   "/Admin/login.php",
		URL:    "https://www.Example.com/Admin/login.php",
		Status: 200,
	}

	tests := []struct {
		q    string
		want bool
	}{
		{"", true},
		{"admin", true},
		{"ADMIN login", true},
		{"example.com", true},
		{"admin missing", false},
		{"other.org", false},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			require.Equal(t, tt.want, NewMatcher(nil, nil, tt.q).Match(f))
		})
	}
}

func TestMatcher_SearchWithoutURL(t *testing.T) {
	f := domain.Finding{Target: "10.0.0.5:8080", Path: "/backup.zip", Status: 200}
	require.True(t, NewMatcher(nil, nil, "10.0.0.5 backup").Match(f))
}

func TestMatcher_FilterDoesNotMutate(t *testing.T) {
	items := []domain.Finding{{Status: 200}, {Status: 404}, {Status: 301}}
	m := NewMatcher(Set[int]{404: {}}, nil, "")

	got := m.Filter(items)
	require.Len(t, got, 2)
	require.Len(t, items, 3)
	require.True(t, m.Any(items))
	require.False(t, m.Any(items[1:2]))
}

func TestHostKey(t *testing.T) {
	tests := map[string]string{
		"https://WWW.Example.com/a":  "example.com",
		"example.com":                "example.com",
		"www.example.com:8443/x":     "example.com",
		"http://10.0.0.1:8080":       "10.0.0.1",
		"  ":                         "",
		"http://[::1]:80/":           "::1",
		"sub.www.example.com/path/q": "sub.www.example.com",
	}
	for in, want := range tests {
		require.Equal(t, want, HostKey(in), in)
	}
}

func TestSpec_QueryAndChanges(t *testing.T) {
	var s Spec
	require.True(t, s.SetStatusExclude("4xx !404"))
	require.False(t, s.SetStatusExclude(" 4xx !404 "))
	require.True(t, s.SetStatusInclude("2xx"))
	require.True(t, s.SetLengthExclude("0 1 2 7"))
	require.True(t, s.SetSearch(" admin "))

	q := s.Query()
	require.Equal(t, domain.FindingsQuery{
		Q:             "admin",
		StatusInclude: "200-299",
		StatusExclude: "400-403,405-499",
		LengthExclude: "0-2,7",
	}, q)

	var empty Spec
	require.True(t, empty.Query().IsZero())
}

func TestSpec_BadTokensSurface(t *testing.T) {
	var s Spec
	s.SetStatusInclude("2xx nope")
	s.SetStatusExclude("5xx 12")
	require.Equal(t, []string{"nope", "12"}, s.Status.Bad())
}
