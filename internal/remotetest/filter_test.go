package remotetest

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pusher91/truderwatch/internal/domain"
)

func TestFindingKeep(t *testing.T) {
	f := func(status int, length int64, path string) domain.Finding {
		return domain.Finding{Target: "http://Example.com", Path: path, Status: status, Length: length}
	}

	tests := []struct {
		name  string
		query url.Values
		in    domain.Finding
		want  bool
	}{
		{"search all tokens", url.Values{"q": {"example ADMIN"}}, f(200, 1, "/admin"), true},
		{"search missing token", url.Values{"q": {"example login"}}, f(200, 1, "/admin"), false},
		{"search alias", url.Values{"search": {"admin"}}, f(200, 1, "/admin"), true},
		{"status class include", url.Values{"statusInclude": {"2xx"}}, f(204, 1, "/"), true},
		{"status include miss", url.Values{"statusInclude": {"301,302"}}, f(204, 1, "/"), false},
		{"exclude wins", url.Values{"statusInclude": {"4xx"}, "statusExclude": {"404"}}, f(404, 1, "/"), false},
		{"length range exclude", url.Values{"lengthExclude": {"100-200"}}, f(200, 150, "/"), false},
		{"unknown length survives exclude", url.Values{"lengthExclude": {"0-999"}}, f(200, -1, "/"), true},
		{"unknown length fails include", url.Values{"lengthInclude": {"0-999"}}, f(200, -1, "/"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, apiErr := findingKeep(tt.query)
			require.Nil(t, apiErr)
			require.NotNil(t, keep)
			assert.Equal(t, tt.want, keep(tt.in))
		})
	}
}

func TestFindingKeep_NoFilters(t *testing.T) {
	keep, apiErr := findingKeep(url.Values{"q": {"   "}})
	assert.Nil(t, apiErr)
	assert.Nil(t, keep)
}

func TestFindingKeep_Validation(t *testing.T) {
	for _, q := range []url.Values{
		{"statusInclude": {"99"}},
		{"statusExclude": {"600"}},
		{"statusExclude": {"6xx"}},
		{"statusExclude": {"404-400"}},
		{"lengthInclude": {"abc"}},
		{"lengthExclude": {"-5"}},
	} {
		_, apiErr := findingKeep(q)
		require.NotNil(t, apiErr, q.Encode())
		assert.Equal(t, "validation_error", apiErr.Err.Code)
	}
}
