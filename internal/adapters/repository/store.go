// Package repository provides session-scoped storage for estimate records.
package repository

import "context"

// Store is a key-value store partitioned by session, the server-side
// counterpart of a browser tab's sessionStorage.
type Store interface {
	// Get returns the value for key in session. ok is false when absent.
	Get(ctx context.Context, sessionID, key string) (value []byte, ok bool, err error)
	// Set replaces the value for key in session.
	Set(ctx context.Context, sessionID, key string, value []byte) error
}
