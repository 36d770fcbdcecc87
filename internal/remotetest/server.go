// Package remotetest runs an in-process webtruder-compatible remote backed
// by NDJSON files in a temp dir.
package remotetest

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

type Options struct {
	// Retry is the reconnect hint sent on every event stream.
	Retry time.Duration
	// Heartbeat is the comment-frame interval on idle streams.
	Heartbeat time.Duration
}

type scan struct {
	meta   domain.Meta
	active bool
}

type Server struct {
	opts Options
	dir  string
	http *httptest.Server

	broker *broker

	mu       sync.Mutex
	scans    map[string]*scan
	netInfo  domain.NetInfo
	requests []string
	fail     map[string]*api.APIError
	override map[string]http.HandlerFunc
}

func New(t testing.TB) *Server {
	return NewWith(t, Options{})
}

func NewWith(t testing.TB, opts Options) *Server {
	t.Helper()
	if opts.Retry <= 0 {
		opts.Retry = 2 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}

	s := &Server{
		opts:     opts,
		dir:      t.TempDir(),
		broker:   newBroker(),
		scans:    map[string]*scan{},
		fail:     map[string]*api.APIError{},
		override: map[string]http.HandlerFunc{},
		netInfo:  domain.NetInfo{LocalIPv4s: []string{}},
	}
	s.http = httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.broker.shutdown()
		s.http.Close()
	})
	return s
}

func (s *Server) URL() string { return s.http.URL }

func (s *Server) Client() *http.Client { return s.http.Client() }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/events", s.handleEvents)

	mux.HandleFunc("/api/scans", wrap(http.MethodGet, s.scansList))
	mux.HandleFunc("/api/scans/state", wrap(http.MethodGet, s.scanState))
	mux.HandleFunc("/api/scans/findings", wrap(http.MethodGet, s.scanFindings))
	mux.HandleFunc("/api/scans/log", wrap(http.MethodGet, s.probePage(s.probesPath, nil)))
	mux.HandleFunc("/api/scans/errors", wrap(http.MethodGet, s.probePage(s.probesPath, isErrorProbe)))

	mux.HandleFunc("/api/scans/pause", wrap(http.MethodPost, s.pauseScan))
	mux.HandleFunc("/api/scans/resume", wrap(http.MethodPost, s.resumeScan))
	mux.HandleFunc("/api/scans/stop", wrap(http.MethodPost, s.stopScan))
	mux.HandleFunc("/api/scans/delete", wrap(http.MethodPost, s.deleteScan))

	mux.HandleFunc("/api/netinfo", wrap(http.MethodGet, s.netInfoAPI))

	return s.intercept(mux)
}

// intercept records every request and serves injected failures and
// overrides ahead of the real routes.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		apiErr := s.fail[r.URL.Path]
		delete(s.fail, r.URL.Path)
		h := s.override[r.URL.Path]
		s.mu.Unlock()

		if apiErr != nil {
			writeEnvelope(w, apiErr.Status, response{Error: &apiErr.Err})
			return
		}
		if h != nil {
			h(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes the next request to path answer with the given error envelope.
func (s *Server) Fail(path string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[path] = &api.APIError{Status: status, Err: api.Error{Code: code, Message: message}}
}

// Handle replaces the route for path until the test ends.
func (s *Server) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override[path] = h
}

// Requests returns the request URIs seen so far, optionally limited to
// those whose path starts with prefix.
func (s *Server) Requests(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		if prefix == "" || strings.HasPrefix(r, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) SetNetInfo(ni domain.NetInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ni.LocalIPv4s == nil {
		ni.LocalIPv4s = []string{}
	}
	s.netInfo = ni
}

func (s *Server) netInfoAPI(r *http.Request) (any, *api.APIError) {
	s.mu.Lock()
	out := s.netInfo
	s.mu.Unlock()

	if r.URL.Query().Get("public") != "1" {
		out.PublicIPv4 = ""
	}
	return out, nil
}

func (s *Server) findingsPath(id string) string {
	return filepath.Join(s.dir, "scans", id+".findings.ndjson")
}

func (s *Server) probesPath(id string) string {
	return filepath.Join(s.dir, "scans", id+".probes.ndjson")
}
