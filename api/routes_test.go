package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dynamicdna/academy/api"
	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/internal/upload"
	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository/mock"
)

type routerFixture struct {
	router     http.Handler
	resolves   *atomic.Int32
	deleted    *atomic.Int32
	tokens     *session.TokenManager
	uploadsDir string
	staticDir  string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	store := mock.NewStore()
	store.AddUser(models.User{OpenID: "admin-1", Email: strPtr("admin@academy.test"), Role: models.RoleAdmin})
	store.AddUser(models.User{OpenID: "user-1", Email: strPtr("user@academy.test"), Role: models.RoleUser})

	tokens := session.NewTokenManager(testSecret, 0)

	reg := rpc.NewRegistry()
	reg.Query("whoami", rpc.Protected, func(ctx context.Context, c *rpc.Call) (any, error) {
		return session.IdentityFrom(ctx), nil
	})
	deleted := &atomic.Int32{}
	reg.Mutation("items.delete", rpc.Admin, func(ctx context.Context, c *rpc.Call) (any, error) {
		deleted.Add(1)
		return map[string]bool{"success": true}, nil
	})

	uploadsDir := t.TempDir()
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	resolves := &atomic.Int32{}
	chain := session.NewResolver(session.Options{Tokens: tokens, Users: store, LocalLogin: true})
	counting := countingResolver{next: chain, n: resolves}

	router := api.SetupRoutes(api.Deps{
		Version:    "test",
		Registry:   reg,
		Resolver:   counting,
		Users:      store,
		Tokens:     tokens,
		LocalLogin: true,
		Uploads:    upload.NewService(upload.NewLocalStore(uploadsDir)),
		StaticDir:  staticDir,
		UploadsDir: uploadsDir,
	})
	return &routerFixture{router: router, resolves: resolves, deleted: deleted, tokens: tokens, uploadsDir: uploadsDir, staticDir: staticDir}
}

type countingResolver struct {
	next session.IdentityResolver
	n    *atomic.Int32
}

func (c countingResolver) Resolve(r *http.Request) *models.User {
	c.n.Add(1)
	return c.next.Resolve(r)
}

func (f *routerFixture) cookie(t *testing.T, email string) *http.Cookie {
	t.Helper()
	tok, err := f.tokens.Sign(session.Claims{OpenID: "local:" + email, Email: email})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: tok}
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouterRPCResolvesSession(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/trpc/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401 got %d body=%s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/trpc/whoami", nil)
	req.AddCookie(f.cookie(t, "user@academy.test"))
	w = f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("with cookie: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var env struct {
		Result struct {
			Data models.User `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Result.Data.OpenID != "user-1" {
		t.Fatalf("unexpected identity: %+v", env.Result.Data)
	}
	if w.Header().Get(api.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "Photo.PNG")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestRouterUpload(t *testing.T) {
	f := newRouterFixture(t)

	cases := []struct {
		name       string
		email      string
		wantStatus int
		wantError  string
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized, wantError: rpc.MsgUnauthorized},
		{name: "user", email: "user@academy.test", wantStatus: http.StatusForbidden, wantError: rpc.MsgAdminRequired},
		{name: "admin", email: "admin@academy.test", wantStatus: http.StatusOK},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body, ct := pngUpload(t)
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)
			if c.email != "" {
				req.AddCookie(f.cookie(t, c.email))
			}
			w := f.do(req)
			if w.Code != c.wantStatus {
				t.Fatalf("expected %d got %d body=%s", c.wantStatus, w.Code, w.Body.String())
			}
			if c.wantError != "" {
				if !strings.Contains(w.Body.String(), c.wantError) {
					t.Fatalf("expected %q in %s", c.wantError, w.Body.String())
				}
				return
			}

			var resp struct {
				Success bool   `json:"success"`
				URL     string `json:"url"`
				Key     string `json:"key"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !resp.Success || !strings.HasPrefix(resp.Key, "uploads/") || !strings.HasSuffix(resp.Key, ".png") {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if resp.URL != "/"+resp.Key {
				t.Fatalf("expected url /%s got %s", resp.Key, resp.URL)
			}

			// the stored image is served back
			w = f.do(httptest.NewRequest(http.MethodGet, resp.URL, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("serve upload: expected 200 got %d", w.Code)
			}
			if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
				t.Fatalf("served bytes are not the upload")
			}
		})
	}
}

func TestRouterUploadWithoutFile(t *testing.T) {
	f := newRouterFixture(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(f.cookie(t, "admin@academy.test"))
	w := f.do(req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "No file uploaded") {
		t.Fatalf("expected 400 no file, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRouterStaticAndFallbacks(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "asset", method: http.MethodGet, path: "/app.js", wantStatus: http.StatusOK, wantBody: "console.log(1)"},
		{name: "root", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<html>app</html>"},
		{name: "client route", method: http.MethodGet, path: "/news/new-cohort", wantStatus: http.StatusOK, wantBody: "<html>app</html>"},
		{name: "unknown api", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantBody: `"error":"Not found"`},
		{name: "missing upload", method: http.MethodGet, path: "/uploads/missing.png", wantStatus: http.StatusNotFound},
		{name: "upload listing", method: http.MethodGet, path: "/uploads/", wantStatus: http.StatusNotFound},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "version", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK, wantBody: `"version":"test"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("%s %s: expected %d got %d", tt.method, tt.path, tt.wantStatus, w.Code)
			}
			b, _ := io.ReadAll(w.Body)
			if tt.wantBody != "" && !strings.Contains(string(b), tt.wantBody) {
				t.Fatalf("expected %q in %s", tt.wantBody, string(b))
			}
		})
	}
}

func TestRouterPreflight(t *testing.T) {
	f := newRouterFixture(t)
	for _, p := range []string{"/api/local-login", "/api/upload", "/api/trpc/whoami"} {
		req := httptest.NewRequest(http.MethodOptions, p, nil)
		req.Header.Set("Origin", "https://academy.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := f.do(req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204 got %d", p, w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("%s: missing allow-origin", p)
		}
	}
}

func TestRouterResolvesSessionOnlyForAPI(t *testing.T) {
	f := newRouterFixture(t)
	cookie := f.cookie(t, "admin@academy.test")

	for _, p := range []string{"/", "/app.js", "/news/new-cohort", "/health", "/version", "/uploads/missing.png"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.AddCookie(cookie)
		f.do(req)
	}
	if n := f.resolves.Load(); n != 0 {
		t.Fatalf("expected no identity resolution outside /api, got %d", n)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/trpc/whoami", nil)
	req.AddCookie(cookie)
	if w := f.do(req); w.Code != http.StatusOK {
		t.Fatalf("whoami: expected 200 got %d", w.Code)
	}
	if n := f.resolves.Load(); n != 1 {
		t.Fatalf("expected one resolution for the api call, got %d", n)
	}
}

func TestRouterRejectsCrossSiteFormMutation(t *testing.T) {
	f := newRouterFixture(t)
	cookie := f.cookie(t, "admin@academy.test")

	tests := []struct {
		name        string
		contentType string
		wantStatus  int
		wantDeleted int32
	}{
		{name: "text/plain form", contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
		{name: "urlencoded form", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "json", contentType: "application/json", wantStatus: http.StatusOK, wantDeleted: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.deleted.Store(0)
			req := httptest.NewRequest(http.MethodPost, "/api/trpc/items.delete", strings.NewReader(`{"id":1,"x":"="}`))
			req.Header.Set("Content-Type", tt.contentType)
			req.Header.Set("Origin", "https://evil.example")
			req.AddCookie(cookie)
			w := f.do(req)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := f.deleted.Load(); got != tt.wantDeleted {
				t.Fatalf("mutation ran %d times, want %d", got, tt.wantDeleted)
			}
		})
	}
}
