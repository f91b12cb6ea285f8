package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dynamicdna/academy/api"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "ok" {
		t.Fatalf("unexpected body: %q", string(b))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.RequestIDFrom(r.Context())
	}))

	// generated when absent
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	got := w.Header().Get(api.RequestIDHeader)
	if got == "" || got != seen {
		t.Fatalf("expected generated id echoed and in context, header=%q ctx=%q", got, seen)
	}

	// reused when present
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get(api.RequestIDHeader) != "abc-123" || seen != "abc-123" {
		t.Fatalf("expected incoming id reused, got %q", w.Header().Get(api.RequestIDHeader))
	}

	// oversized ids are replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.RequestIDHeader, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if len(seen) != 36 {
		t.Fatalf("expected a fresh uuid, got %q", seen)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantMethods bool
	}{
		{name: "wildcard preflight", origins: []string{"*"}, method: http.MethodOptions, origin: "https://a.test", wantStatus: http.StatusNoContent, wantOrigin: "*", wantMethods: true},
		{name: "wildcard get", origins: nil, method: http.MethodGet, wantStatus: http.StatusOK, wantOrigin: "*", wantMethods: true},
		{name: "listed origin", origins: []string{"https://academy.test"}, method: http.MethodPost, origin: "https://academy.test", wantStatus: http.StatusOK, wantOrigin: "https://academy.test", wantCreds: "true", wantMethods: true},
		{name: "unlisted origin", origins: []string{"https://academy.test"}, method: http.MethodGet, origin: "https://evil.test", wantStatus: http.StatusOK, wantOrigin: "", wantMethods: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			handler := api.CORSMiddleware(c.origins)(next)
			req := httptest.NewRequest(c.method, "/cors", nil)
			if c.origin != "" {
				req.Header.Set("Origin", c.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != c.wantStatus {
				t.Fatalf("expected %d, got %d", c.wantStatus, res.StatusCode)
			}
			if got := res.Header.Get("Access-Control-Allow-Origin"); got != c.wantOrigin {
				t.Fatalf("Allow-Origin: want %q got %q", c.wantOrigin, got)
			}
			if got := res.Header.Get("Access-Control-Allow-Credentials"); got != c.wantCreds {
				t.Fatalf("Allow-Credentials: want %q got %q", c.wantCreds, got)
			}
			if c.wantMethods && !strings.Contains(res.Header.Get("Access-Control-Allow-Methods"), "POST") {
				t.Fatalf("expected Allow-Methods to include POST")
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	// handler that panics
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := api.RecoveryMiddleware(pan)
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"error":"Internal Server Error"`) {
		t.Fatalf("unexpected body for recovery: %s", string(b))
	}

	// normal handler should pass through
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler2 := api.RecoveryMiddleware(ok)
	w2 := httptest.NewRecorder()
	handler2.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Result().StatusCode)
	}
}
