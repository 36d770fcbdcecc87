package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

const (
	pathEvents    = "/events"
	pathScans     = "/api/scans"
	pathScanState = "/api/scans/state"
	pathFindings  = "/api/scans/findings"
	pathLog       = "/api/scans/log"
	pathErrors    = "/api/scans/errors"
	pathNetInfo   = "/api/netinfo"

	sessionHeader = "X-Client-Session"
)

type Options struct {
	Timeout  time.Duration
	Proxy    string
	Insecure bool
	// Retry is the reconnect delay for the event stream until the server
	// sends its own retry hint.
	Retry  time.Duration
	Logger zerolog.Logger

	// HTTPClient replaces both the API and the stream client (tests).
	HTTPClient *http.Client
}

// Client talks to one remote webtruder instance.
type Client struct {
	base    *url.URL
	http    *http.Client
	stream  *http.Client
	session string
	retry   time.Duration
	log     zerolog.Logger
}

var (
	_ domain.FindingsSource = (*Client)(nil)
	_ domain.ProbeSource    = (*Client)(nil)
	_ domain.ScanSource     = (*Client)(nil)
)

func New(baseURL string, opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url scheme must be http or https, got %q", u.Scheme)
	}

	c := &Client{
		base:    u,
		session: uuid.NewString(),
		retry:   opts.Retry,
	}
	if c.retry <= 0 {
		c.retry = 2 * time.Second
	}
	c.log = opts.Logger.With().Str("component", "client").Str("session", c.session).Logger()

	if opts.HTTPClient != nil {
		c.http, c.stream = opts.HTTPClient, opts.HTTPClient
	} else {
		c.http, c.stream = newHTTPClients(opts.Timeout, opts.Proxy, opts.Insecure)
	}
	return c, nil
}

func (c *Client) SessionID() string { return c.session }

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	} else {
		u.RawQuery = ""
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, dst any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(sessionHeader, c.session)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	t0 := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(t0)).
		Msg("request")

	return api.DecodeResponse(resp, dst)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, dst)
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, dst)
}
