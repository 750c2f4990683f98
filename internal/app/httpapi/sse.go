package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// doneGrace is the pause before the [DONE] sentinel so the prior event is
// not truncated in transit.
const doneGrace = 100 * time.Millisecond

type startEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type thoughtEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type completeEvent struct {
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	Icons   []string `json:"icons"`
	Error   *string  `json:"error"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// sseStream serializes server-sent events onto one response. Once the
// consumer is gone or the stream is finished, the closed flag latches and
// every later write is silently dropped.
type sseStream struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	flusher  http.Flusher
	closed   bool
	terminal bool
	done     bool
	sleep    func(time.Duration)
}

func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseStream{w: w, flusher: flusher, sleep: time.Sleep}, nil
}

// send writes one JSON event. Suppressed after close or after a terminal
// event; a failed write latches the closed flag.
func (s *sseStream) send(event any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.terminal {
		return
	}
	s.write(event)
}

// sendTerminal writes the final complete or error event and blocks any
// later thought writes. Only the first terminal event is emitted; the
// orchestrator goroutine may still be draining during the [DONE] grace
// window.
func (s *sseStream) sendTerminal(event any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.terminal {
		return
	}
	s.write(event)
	s.terminal = true
}

// write assumes the caller holds the mutex.
func (s *sseStream) write(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.closed = true
		return
	}
	s.flusher.Flush()
}

// finish terminates the stream with the [DONE] sentinel exactly once,
// after a short grace delay, and latches the stream closed.
func (s *sseStream) finish() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	alreadyClosed := s.closed
	s.mu.Unlock()

	s.sleep(doneGrace)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !alreadyClosed {
		fmt.Fprint(s.w, "data: [DONE]\n\n")
		s.flusher.Flush()
	}
	s.closed = true
}

// markClosed latches the stream after consumer disconnect, without
// emitting anything further.
func (s *sseStream) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
