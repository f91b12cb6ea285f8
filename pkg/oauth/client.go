package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var (
	ErrCircuitOpen = errors.New("oauth circuit open")
	// ErrNoOpenID is returned when the server answers without an openId.
	ErrNoOpenID = errors.New("oauth user info has no openId")
)

const userInfoPath = "/webdev.v1.WebDevAuthPublicService/GetUserInfoWithJwt"

// package-level logger for pkg/oauth; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/oauth. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// UserInfo is the identity the OAuth server reports for a session token.
type UserInfo struct {
	OpenID      string `json:"openId"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Platform    string `json:"platform"`
	LoginMethod string `json:"loginMethod"`
}

// Method returns the login method tag, falling back to the platform name.
func (u UserInfo) Method() string {
	if u.LoginMethod != "" {
		return u.LoginMethod
	}
	return u.Platform
}

// Client talks to the OAuth server and stops calling it for a while after
// repeated failures.
type Client struct {
	cfg    Config
	base   *url.URL
	client *http.Client

	failures  int32
	openUntil int64 // unix nano
	closed    int32
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	u, err := url.ParseRequestURI(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth server url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger.Info("oauth: client created", slog.String("server_url", cfg.ServerURL))
	return &Client{cfg: cfg, base: u, client: httpClient}, nil
}

// GetUserInfoWithJWT exchanges a session token for the user's identity.
func (c *Client) GetUserInfoWithJWT(ctx context.Context, token string) (*UserInfo, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	body, err := json.Marshal(map[string]string{"jwtToken": token, "projectId": c.cfg.AppID})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := c.base.JoinPath(userInfoPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("oauth user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 {
			c.recordFailure()
		}
		return nil, fmt.Errorf("oauth user info returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("decode oauth user info: %w", err)
	}
	atomic.StoreInt32(&c.failures, 0)

	if info.OpenID == "" {
		return nil, ErrNoOpenID
	}
	return &info, nil
}

func (c *Client) isCircuitOpen() bool {
	if c.cfg.CircuitFailureThreshold <= 0 || atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}
	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}
	// half-open: allow the next request through
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if c.cfg.CircuitFailureThreshold > 0 && v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
		logger.Warn("oauth: circuit opened", slog.Int("failures", int(v)), slog.Duration("reset", c.cfg.CircuitReset))
	}
}

// Close releases idle connections. It is idempotent.
func (c *Client) Close() error {
	if c == nil || !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
		tr.CloseIdleConnections()
	}
	return nil
}
