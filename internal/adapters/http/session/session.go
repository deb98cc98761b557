// Package session issues and reads the cookie that identifies a browser
// session.
package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultCookieName is used when Manager is built with an empty name.
const DefaultCookieName = "ecotrack_session"

type ctxKey struct{}

// Manager reads the session cookie or issues a new one.
type Manager struct {
	name   string
	secure bool
}

// NewManager creates a Manager for the named cookie.
func NewManager(name string, secure bool) *Manager {
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{name: name, secure: secure}
}

// CookieName returns the cookie name.
func (m *Manager) CookieName() string { return m.name }

// ID returns the session ID carried by r. When r has no valid session
// cookie a new ID is generated and set on w. The cookie has no expiry, so
// it ends with the browser session.
func (m *Manager) ID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := FromContext(r.Context()); ok {
		return id
	}
	if c, err := r.Cookie(m.name); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Middleware resolves the session ID once and stores it in the request
// context for downstream handlers.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.ID(w, r)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID returns a context carrying the session ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the session ID stored by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
