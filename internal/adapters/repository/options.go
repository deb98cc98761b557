package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithTTL sets how long a session lives after its last write.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity bounds the number of sessions held at once. The least
// recently used session is evicted first.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithQuotaBytes bounds the total size of the values stored per session.
func WithQuotaBytes(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.quotaBytes = n
		}
	}
}

// WithOnEvict registers a callback run when a session expires or is evicted.
// fn may run with the store lock held and must not call back into the store.
func WithOnEvict(fn func(sessionID string)) Option {
	return func(s *MemoryStore) {
		s.onEvict = fn
	}
}
