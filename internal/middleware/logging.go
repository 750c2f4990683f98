package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/logoforge/logoforge/pkg/logger"
)

const traceContextKey contextKey = "trace_id"

// TraceID returns the request trace ID from context, or "".
func TraceID(ctx context.Context) string {
	id, ok := ctx.Value(traceContextKey).(string)
	if !ok {
		return ""
	}
	return id
}

// RequestLogger assigns a trace ID to every request and logs its outcome.
type RequestLogger struct {
	log *logger.Logger
}

// NewRequestLogger creates the request logging middleware.
func NewRequestLogger(log *logger.Logger) *RequestLogger {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &RequestLogger{log: log}
}

// Handler returns the logging middleware handler. A caller-supplied
// X-Trace-ID is honored; otherwise a fresh one is generated. The ID is
// echoed in the response header either way.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), traceContextKey, traceID)
		w.Header().Set("X-Trace-ID", traceID)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		m.log.LogRequest(traceID, r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

// statusWriter captures the response status for logging. Flush must be
// forwarded or SSE responses stall behind the middleware.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
