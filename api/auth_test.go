package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dynamicdna/academy/api"
	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository/mock"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func strPtr(s string) *string { return &s }

func TestLocalLogin(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		body       any
		prepare    func(s *mock.Store)
		wantStatus int
		checkBody  func(t *testing.T, body []byte)
		wantCookie bool
	}{
		{
			name:       "Disabled",
			enabled:    false,
			body:       map[string]string{"email": "admin@academy.test"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "InvalidRequest",
			enabled:    true,
			body:       "not a json object",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "MissingEmail",
			enabled:    true,
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("Email is required")) {
					t.Fatalf("unexpected body: %s", b)
				}
			},
		},
		{
			name:       "UnknownUser",
			enabled:    true,
			body:       map[string]string{"email": "nobody@academy.test"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:    "NotAdmin",
			enabled: true,
			body:    map[string]string{"email": "user@academy.test"},
			prepare: func(s *mock.Store) {
				s.AddUser(models.User{OpenID: "u-1", Email: strPtr("user@academy.test"), Role: models.RoleUser})
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:    "UpsertFails",
			enabled: true,
			body:    map[string]string{"email": "admin@academy.test"},
			prepare: func(s *mock.Store) {
				s.AddUser(models.User{OpenID: "a-1", Email: strPtr("admin@academy.test"), Role: models.RoleAdmin})
				s.WriteErr = io.ErrUnexpectedEOF
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "Success",
			enabled: true,
			body:    map[string]string{"email": "admin@academy.test"},
			prepare: func(s *mock.Store) {
				s.AddUser(models.User{OpenID: "a-1", Name: strPtr("Admin"), Email: strPtr("admin@academy.test"), Role: models.RoleAdmin})
			},
			wantStatus: http.StatusOK,
			wantCookie: true,
			checkBody: func(t *testing.T, b []byte) {
				var resp struct {
					Success bool `json:"success"`
					User    struct {
						ID    int64  `json:"id"`
						Email string `json:"email"`
						Role  string `json:"role"`
					} `json:"user"`
				}
				if err := json.Unmarshal(b, &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if !resp.Success || resp.User.Email != "admin@academy.test" || resp.User.Role != models.RoleAdmin {
					t.Fatalf("unexpected response: %+v", resp)
				}
			},
		},
		{
			name:    "SuccessWithoutOpenID",
			enabled: true,
			body:    map[string]string{"email": "legacy@academy.test"},
			prepare: func(s *mock.Store) {
				s.AddUser(models.User{OpenID: "", Email: strPtr("legacy@academy.test"), Role: models.RoleAdmin})
			},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewStore()
			if tt.prepare != nil {
				tt.prepare(store)
			}
			tokens := session.NewTokenManager(testSecret, session.OneYear)
			handler := api.NewAuthHandler(store, tokens, tt.enabled, nil)

			var b []byte
			if s, ok := tt.body.(string); ok {
				b = []byte(s)
			} else {
				b, _ = json.Marshal(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/local-login", bytes.NewReader(b))
			w := httptest.NewRecorder()
			handler.LocalLogin(w, req)

			res := w.Result()
			defer res.Body.Close()
			data, _ := io.ReadAll(res.Body)
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("%s: expected status %d got %d body=%s", tt.name, tt.wantStatus, res.StatusCode, string(data))
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected json content type, got %q", ct)
			}
			if tt.checkBody != nil {
				tt.checkBody(t, data)
			}

			var cookie *http.Cookie
			for _, c := range res.Cookies() {
				if c.Name == session.CookieName {
					cookie = c
				}
			}
			if !tt.wantCookie {
				if cookie != nil {
					t.Fatalf("unexpected session cookie")
				}
				return
			}
			if cookie == nil {
				t.Fatalf("expected session cookie")
			}
			if !cookie.HttpOnly || cookie.MaxAge < int((364*24*time.Hour).Seconds()) {
				t.Fatalf("unexpected cookie attributes: %+v", cookie)
			}
			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				t.Fatalf("verify cookie: %v", err)
			}
			email := tt.body.(map[string]string)["email"]
			if claims.Email != email || claims.Role != models.RoleAdmin || claims.OpenID == "" {
				t.Fatalf("unexpected claims: %+v", claims)
			}
			if tt.name == "SuccessWithoutOpenID" {
				if claims.OpenID != "local:"+email {
					t.Fatalf("expected fallback openId, got %q", claims.OpenID)
				}
				if u, _ := store.GetUserByOpenID(req.Context(), "local:"+email); u == nil {
					t.Fatalf("expected user upserted under fallback openId")
				}
			}
		})
	}
}

func TestLocalLoginRateLimited(t *testing.T) {
	store := mock.NewStore()
	store.AddUser(models.User{OpenID: "a-1", Email: strPtr("admin@academy.test"), Role: models.RoleAdmin})
	handler := api.NewAuthHandler(store, session.NewTokenManager(testSecret, 0), true, rpc.NewIPLimiter(0.001, 1))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/local-login", bytes.NewReader([]byte(`{"email":"admin@academy.test"}`)))
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		handler.LocalLogin(w, req)
		return w.Code
	}
	if got := do(); got != http.StatusOK {
		t.Fatalf("first attempt: expected 200 got %d", got)
	}
	if got := do(); got != http.StatusTooManyRequests {
		t.Fatalf("second attempt: expected 429 got %d", got)
	}
}
