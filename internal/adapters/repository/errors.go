package repository

import "errors"

// Sentinel kinds for session storage errors.
var (
	ErrUnavailable   = errors.New("session storage unavailable")
	ErrQuotaExceeded = errors.New("session storage quota exceeded")
	ErrCorrupt       = errors.New("session log corrupt")
	ErrInvalidKey    = errors.New("invalid session or key")
)

// Kind returns a short label for a storage error, used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrCorrupt):
		return "corrupt"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	default:
		return "unknown"
	}
}
