package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Pusher91/truderwatch/internal/client/api"
)

// Event is one server-sent event frame.
type Event struct {
	Name string
	Data []byte
	ID   string
}

// StreamHooks receive transport-level notifications. Events are delivered
// in server-send order on the goroutine running Stream.
type StreamHooks struct {
	OnOpen  func()
	OnEvent func(ev Event)
	// OnError fires when the connection drops; Stream reconnects afterwards.
	OnError func(err error)
}

var errStreamClosed = errors.New("event stream closed by server")

const maxEventLine = 1 << 20

// Stream consumes /events until ctx is done, reconnecting after failures.
// Reconnects are paced to one per retry interval; the server can change the
// interval with a retry: field.
func (c *Client) Stream(ctx context.Context, hooks StreamHooks) error {
	lim := rate.NewLimiter(rate.Every(c.retry), 1)

	for {
		if err := lim.Wait(ctx); err != nil {
			return ctx.Err()
		}

		err := c.streamOnce(ctx, hooks, lim)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.log.Warn().Err(err).Msg("event stream disconnected, will retry")
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, hooks StreamHooks, lim *rate.Limiter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathEvents, nil), nil)
	if err != nil {
		return fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(sessionHeader, c.session)

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return api.DecodeResponse(resp, nil)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return fmt.Errorf("event stream: unexpected content type %q", ct)
	}

	if hooks.OnOpen != nil {
		hooks.OnOpen()
	}

	return readEvents(resp.Body, func(ev Event) {
		if hooks.OnEvent != nil {
			hooks.OnEvent(ev)
		}
	}, func(d time.Duration) {
		lim.SetLimit(rate.Every(d))
	})
}

// readEvents parses the text/event-stream framing. It returns errStreamClosed
// on a clean EOF.
func readEvents(r io.Reader, emit func(Event), setRetry func(time.Duration)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)

	var (
		name    string
		id      string
		data    strings.Builder
		hasData bool
	)

	dispatch := func() {
		if hasData {
			n := name
			if n == "" {
				n = "message"
			}
			emit(Event{Name: n, Data: []byte(data.String()), ID: id})
		}
		name = ""
		data.Reset()
		hasData = false
	}

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			dispatch()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // heartbeat
		}

		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = strings.TrimPrefix(line[i+1:], " ")
		}

		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			id = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms > 0 && setRetry != nil {
				setRetry(time.Duration(ms) * time.Millisecond)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return errStreamClosed
}
