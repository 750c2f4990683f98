package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestStream(t *testing.T) (*sseStream, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	stream, err := newSSEStream(rec)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	stream.sleep = func(time.Duration) {}
	return stream, rec
}

func sseLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			lines = append(lines, strings.TrimPrefix(line, "data: "))
		}
	}
	return lines
}

func TestSSEStreamHeaders(t *testing.T) {
	_, rec := newTestStream(t)

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("cache control = %q", got)
	}
}

func TestSSEStreamEventFraming(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.send(startEvent{Type: "start", Message: "go"})
	stream.send(thoughtEvent{Type: "thought", Content: "hmm"})
	stream.finish()

	lines := sseLines(rec.Body.String())
	if len(lines) != 3 {
		t.Fatalf("expected 3 data lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `"type":"start"`) {
		t.Fatalf("first line should be the start event: %q", lines[0])
	}
	if lines[2] != "[DONE]" {
		t.Fatalf("stream must end with [DONE], got %q", lines[2])
	}
}

func TestSSEStreamDoneExactlyOnce(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.finish()
	stream.finish()
	stream.finish()

	if got := strings.Count(rec.Body.String(), "[DONE]"); got != 1 {
		t.Fatalf("[DONE] emitted %d times", got)
	}
}

func TestSSEStreamWriteAfterCloseSuppressed(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.markClosed()
	before := rec.Body.String()

	stream.send(thoughtEvent{Type: "thought", Content: "late"})
	stream.send(errorEvent{Type: "error", Error: "late"})
	stream.finish()

	if rec.Body.String() != before {
		t.Fatalf("writes after close must be suppressed, got %q", rec.Body.String())
	}
}

func TestSSEStreamSendAfterFinishSuppressed(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.finish()
	after := rec.Body.String()

	stream.send(thoughtEvent{Type: "thought", Content: "late"})
	if rec.Body.String() != after {
		t.Fatal("send after finish must be a no-op")
	}
}

func TestSSEStreamThoughtAfterTerminalSuppressed(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.send(startEvent{Type: "start", Message: "go"})
	stream.sendTerminal(errorEvent{Type: "error", Error: "generation timed out"})

	// A narration chunk racing the terminal event must not re-open the
	// protocol sequence.
	stream.send(thoughtEvent{Type: "thought", Content: "late"})
	stream.sendTerminal(completeEvent{Type: "complete", Success: true, Icons: []string{}})
	stream.finish()

	body := rec.Body.String()
	if strings.Contains(body, `"type":"thought"`) {
		t.Fatalf("thought after terminal event must be dropped: %q", body)
	}
	if strings.Contains(body, `"type":"complete"`) {
		t.Fatalf("second terminal event must be dropped: %q", body)
	}

	lines := sseLines(body)
	if len(lines) != 3 || lines[2] != "[DONE]" {
		t.Fatalf("expected start, error, [DONE]; got %v", lines)
	}
}

func TestSSEStreamCompleteEventShape(t *testing.T) {
	stream, rec := newTestStream(t)

	stream.send(completeEvent{Type: "complete", Success: true, Icons: []string{}})
	stream.finish()

	lines := sseLines(rec.Body.String())
	if len(lines) == 0 {
		t.Fatal("no events written")
	}
	want := `{"type":"complete","success":true,"icons":[],"error":null}`
	if lines[0] != want {
		t.Fatalf("complete event = %q, want %q", lines[0], want)
	}
}
