// Package config defines service configuration and its loading.
//
// Emission factors are fixed in the domain and intentionally absent here.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SessionTTLSeconds is how long a session survives after its last write.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`
	// SessionCapacity bounds the number of sessions held in memory.
	SessionCapacity int `koanf:"session_capacity"`
	// SessionQuotaBytes bounds the stored bytes per session.
	SessionQuotaBytes int `koanf:"session_quota_bytes"`

	// CookieName names the session cookie.
	CookieName string `koanf:"cookie_name"`
	// CookieSecure marks the session cookie Secure (HTTPS only).
	CookieSecure bool `koanf:"cookie_secure"`

	// RateLimitRPS and RateLimitBurst configure the per-client token bucket.
	// A non-positive RPS disables rate limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For and X-Real-IP
	// instead of the peer address.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		SessionTTLSeconds: 1800,
		SessionCapacity:   10_000,
		SessionQuotaBytes: 5 << 20,
		CookieName:        "ecotrack_session",
		RateLimitRPS:      10,
		RateLimitBurst:    20,
	}
}

// SessionTTL returns SessionTTLSeconds as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionTTLSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_seconds must be positive", ErrInvalidConfig)
	case c.SessionCapacity <= 0:
		return fmt.Errorf("%w: session_capacity must be positive", ErrInvalidConfig)
	case c.SessionQuotaBytes <= 0:
		return fmt.Errorf("%w: session_quota_bytes must be positive", ErrInvalidConfig)
	case c.CookieName == "":
		return fmt.Errorf("%w: cookie_name must not be empty", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	return nil
}
