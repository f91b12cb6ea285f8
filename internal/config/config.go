package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// knownWeakSecrets are example values that must never sign production sessions.
var knownWeakSecrets = []string{
	"supersecretkey",
	"change-me",
	"secret",
}

// MinJWTSecretLength is the shortest session signing secret accepted outside
// development.
const MinJWTSecretLength = 32

type Config struct {
	Addr        string        `yaml:"addr" env:"ADDR" envDefault:":3000"`
	Env         string        `yaml:"env" env:"APP_ENV" envDefault:"production"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	APITimeout  time.Duration `yaml:"timeout" env:"API_TIMEOUT" envDefault:"15s"`

	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL" envDefault:"8760h"`
	AllowLocalLogin bool          `yaml:"allow_local_login" env:"ALLOW_LOCAL_LOGIN" envDefault:"false"`

	OAuth   OAuthConfig   `yaml:"oauth"`
	Mail    MailConfig    `yaml:"mail"`
	Notify  NotifyConfig  `yaml:"notify"`
	Storage StorageConfig `yaml:"storage"`

	StaticDir   string   `yaml:"static_dir" env:"STATIC_DIR" envDefault:"dist/public"`
	UploadsDir  string   `yaml:"uploads_dir" env:"UPLOADS_DIR" envDefault:"uploads"`
	CORSOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envDefault:"127.0.0.1,::1" envSeparator:","`

	FormRateLimit float64 `yaml:"form_rate_limit" env:"FORM_RATE_LIMIT" envDefault:"0.2"`
	FormRateBurst int     `yaml:"form_rate_burst" env:"FORM_RATE_BURST" envDefault:"5"`
}

type OAuthConfig struct {
	ServerURL   string `yaml:"server_url" env:"OAUTH_SERVER_URL"`
	AppID       string `yaml:"app_id" env:"APP_ID"`
	OwnerOpenID string `yaml:"owner_open_id" env:"OWNER_OPEN_ID"`
}

type MailConfig struct {
	OwnerEmail string `yaml:"owner_email" env:"OWNER_EMAIL"`
	Host       string `yaml:"smtp_host" env:"SMTP_HOST"`
	Port       int    `yaml:"smtp_port" env:"SMTP_PORT" envDefault:"587"`
	User       string `yaml:"smtp_user" env:"SMTP_USER"`
	Pass       string `yaml:"smtp_pass" env:"SMTP_PASS"`
	From       string `yaml:"smtp_from" env:"SMTP_FROM"`
}

type NotifyConfig struct {
	Async     bool `yaml:"async" env:"NOTIFY_ASYNC" envDefault:"false"`
	Workers   int  `yaml:"workers" env:"NOTIFY_WORKERS" envDefault:"2"`
	QueueSize int  `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE" envDefault:"64"`
}

type StorageConfig struct {
	APIURL string `yaml:"api_url" env:"STORAGE_API_URL"`
	APIKey string `yaml:"api_key" env:"STORAGE_API_KEY"`
}

// LoadConfig reads the environment and then overlays the YAML file at path,
// if one is given.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// LocalLoginEnabled reports whether /api/local-login may issue sessions.
// Development must be selected explicitly with APP_ENV=development.
func (c *Config) LocalLoginEnabled() bool {
	return c.AllowLocalLogin || c.IsDevelopment()
}

// SessionsEnabled reports whether a signing secret is configured.
func (c *Config) SessionsEnabled() bool {
	return c.JWTSecret != ""
}

// OAuthEnabled reports whether sessions can be resolved through the OAuth server.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ServerURL != ""
}

// MailFrom returns the sender address for outgoing mail.
func (c *Config) MailFrom() string {
	switch {
	case c.Mail.From != "":
		return c.Mail.From
	case c.Mail.User != "":
		return c.Mail.User
	}
	return c.Mail.OwnerEmail
}

// Validate checks the configuration and fills defaults for zero values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 365 * 24 * time.Hour
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 64
	}

	// An empty secret is allowed: sessions then never verify and every
	// request is anonymous. A configured secret must be strong outside
	// development.
	if c.JWTSecret != "" && !c.IsDevelopment() {
		for _, weak := range knownWeakSecrets {
			if strings.EqualFold(c.JWTSecret, weak) {
				return errors.New("JWT_SECRET is a known default value and must not be used")
			}
		}
		if len(c.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes long, got %d", MinJWTSecretLength, len(c.JWTSecret))
		}
	}

	if c.Mail.Host != "" && (c.Mail.Port <= 0 || c.Mail.Port > 65535) {
		return fmt.Errorf("SMTP_PORT %d is not a valid port", c.Mail.Port)
	}
	if c.FormRateLimit < 0 || c.FormRateBurst < 0 {
		return errors.New("FORM_RATE_LIMIT and FORM_RATE_BURST must not be negative")
	}

	return nil
}
