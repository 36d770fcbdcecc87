package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

type message struct {
	Event string
	Data  string
}

type broker struct {
	mu     sync.Mutex
	subs   map[chan message]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan message]struct{})}
}

func (b *broker) subscribe() chan message {
	ch := make(chan message, 256)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *broker) unsubscribe(ch chan message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *broker) publish(msg message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *broker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// closeAll ends every open stream; clients see a disconnect.
func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked()
}

// shutdown ends every stream and refuses new ones.
func (b *broker) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.dropLocked()
}

func (b *broker) dropLocked() {
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Emit publishes one event to every connected stream. A payload that is
// already a string or []byte is sent verbatim.
func (s *Server) Emit(event string, payload any) {
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	default:
		b, _ := json.Marshal(payload)
		data = string(b)
	}
	s.broker.publish(message{Event: event, Data: data})
}

// Subscribers is the number of connected event streams.
func (s *Server) Subscribers() int { return s.broker.count() }

// Disconnect drops every event stream.
func (s *Server) Disconnect() { s.broker.closeAll() }

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.broker.subscribe()
	defer s.broker.unsubscribe(ch)

	fmt.Fprintf(w, "retry: %d\n\n", s.opts.Retry.Milliseconds())
	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
