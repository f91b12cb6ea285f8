package oauth

import "time"

// Config holds settings for the OAuth server client.
type Config struct {
	// ServerURL is the OAuth server base URL, e.g. https://auth.example.com
	ServerURL string `yaml:"server_url" json:"server_url"`
	// AppID identifies this application to the OAuth server
	AppID string `yaml:"app_id" json:"app_id"`
	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CircuitFailureThreshold opens the circuit after this many consecutive failures
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold" json:"circuit_failure_threshold"`
	// CircuitReset is the duration after which the circuit attempts to half-open
	CircuitReset time.Duration `yaml:"circuit_reset" json:"circuit_reset"`
}

// DefaultConfig returns the client defaults for serverURL and appID.
func DefaultConfig(serverURL, appID string) Config {
	return Config{
		ServerURL:               serverURL,
		AppID:                   appID,
		Timeout:                 10 * time.Second,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}
