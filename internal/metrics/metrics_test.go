package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInstrumentHandler_RecordsStatus(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	InstrumentHandler(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/styles", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestInstrumentHandler_PreservesFlusher(t *testing.T) {
	var sawFlusher bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawFlusher = w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	InstrumentHandler(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/icons/generate/stream", nil))

	if !sawFlusher {
		t.Fatal("wrapped writer does not implement http.Flusher")
	}
}

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/icons", "/api/icons"},
		{"/api/icons/42", "/api/icons/:id"},
		{"/api/icons/8f1d2a34-5b6c-7d8e-9f01-23456789abcd", "/api/icons/:id"},
		{"/healthz", "/healthz"},
	}
	for _, tc := range cases {
		if got := canonicalPath(tc.in); got != tc.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
