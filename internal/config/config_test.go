package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dynamicdna/academy/internal/config"
)

const strongSecret = "x9F!kd02-LmQ7zr81vB2wTq4Rs5Yy6Nn"

func TestValidate_WeakJWT_FailsWhenNotDevelopment(t *testing.T) {
	for _, secret := range []string{"supersecretkey", "short-but-unique"} {
		cfg := &config.Config{Env: "production", JWTSecret: secret}
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected Validate to fail for secret %q outside development", secret)
		}
	}
}

func TestValidate_EmptySecretDisablesSessions(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		cfg := &config.Config{Env: env}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: expected Validate to succeed, got: %v", env, err)
		}
		if cfg.JWTSecret != "" || cfg.SessionsEnabled() {
			t.Fatalf("%s: no secret may be invented, got %q", env, cfg.JWTSecret)
		}
		if cfg.APITimeout != 15*time.Second || cfg.SessionTTL != 365*24*time.Hour {
			t.Fatalf("defaults not populated: %+v", cfg)
		}
	}
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadConfig_ZeroEnvFailsClosed(t *testing.T) {
	for _, k := range []string{"APP_ENV", "JWT_SECRET", "ALLOW_LOCAL_LOGIN"} {
		unsetEnv(t, k)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("environment must default to production, got %q", cfg.Env)
	}
	if cfg.LocalLoginEnabled() {
		t.Fatalf("local login must be off without explicit configuration")
	}
	if cfg.SessionsEnabled() || cfg.JWTSecret != "" {
		t.Fatalf("no session secret may be configured by default, got %q", cfg.JWTSecret)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "127.0.0.1" {
		t.Fatalf("trusted proxies default = %v", cfg.TrustedProxies)
	}
}

func TestLoadConfig_ExplicitDevelopment(t *testing.T) {
	unsetEnv(t, "ALLOW_LOCAL_LOGIN")
	t.Setenv("APP_ENV", "development")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.LocalLoginEnabled() {
		t.Fatalf("development should enable local login")
	}
}

func TestValidate_ProductionStrongSecret(t *testing.T) {
	cfg := &config.Config{Env: "production", JWTSecret: strongSecret}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.LocalLoginEnabled() {
		t.Fatalf("local login must be off in production unless allowed")
	}
	cfg.AllowLocalLogin = true
	if !cfg.LocalLoginEnabled() {
		t.Fatalf("expected ALLOW_LOCAL_LOGIN to enable local login")
	}
}

func TestValidate_BadSMTPPort(t *testing.T) {
	cfg := &config.Config{Env: "development", Mail: config.MailConfig{Host: "smtp.example.com", Port: 70000}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to reject port 70000")
	}
}

func TestLoadConfig_EnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "sqlite://academy.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":3000" || cfg.Mail.Port != 587 || cfg.Notify.Workers != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DatabaseURL != "sqlite://academy.db" {
		t.Fatalf("DATABASE_URL not read: %q", cfg.DatabaseURL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORS origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	t.Setenv("ADDR", ":9999")

	y := strings.Join([]string{
		`addr: ":4000"`,
		`timeout: 5s`,
		`mail:`,
		`  owner_email: "owner@example.com"`,
		`  smtp_port: 465`,
		`notify:`,
		`  async: true`,
	}, "\n")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(y), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":4000" || cfg.APITimeout != 5*time.Second {
		t.Fatalf("yaml did not override: addr=%q timeout=%v", cfg.Addr, cfg.APITimeout)
	}
	if cfg.Mail.Port != 465 || !cfg.Notify.Async || cfg.MailFrom() != "owner@example.com" {
		t.Fatalf("nested yaml not applied: %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
