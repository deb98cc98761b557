// Package smoke drives a running EcoTrack service over HTTP and checks its
// answers against the footprint domain rules.
package smoke

import (
	"errors"
	"fmt"
	"time"
)

// Default run parameters.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultSessions    = 20
	DefaultSubmissions = 5
	DefaultWorkers     = 4
	DefaultTimeout     = 10 * time.Second
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid smoke config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrMismatch      = errors.New("response mismatch")
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Sessions    int           // Independent browser sessions to simulate
	Submissions int           // Submissions per session
	Workers     int           // Sessions driven concurrently
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Sample generator seed
	InvalidRate float64       // Share of submissions generated invalid, in [0, 1]
	Verbose     bool          // Log every submission
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL is empty", ErrInvalidConfig)
	case c.Sessions <= 0:
		return fmt.Errorf("%w: sessions must be positive", ErrInvalidConfig)
	case c.Submissions <= 0:
		return fmt.Errorf("%w: submissions must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.InvalidRate < 0 || c.InvalidRate > 1:
		return fmt.Errorf("%w: invalid rate must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Sessions    int
	Submitted   int
	Accepted    int
	Rejected    int
	NotSaved    int
	Restored    int
	Mismatches  int
	RateLimited int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
