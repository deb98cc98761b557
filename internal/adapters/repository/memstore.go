package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for MemoryStore.
const (
	defaultTTL        = 30 * time.Minute
	defaultCapacity   = 10_000
	defaultQuotaBytes = 5 << 20 // what browsers typically allow sessionStorage
)

// session is an immutable snapshot of one session's values. Writers build a
// new snapshot and swap it in.
type session struct {
	values map[string][]byte
	size   int
}

func (s *session) with(key string, value []byte) *session {
	next := &session{values: make(map[string][]byte, len(s.values)+1), size: s.size}
	for k, v := range s.values {
		next.values[k] = v
	}
	if old, ok := next.values[key]; ok {
		next.size -= len(key) + len(old)
	}
	next.values[key] = value
	next.size += len(key) + len(value)
	return next
}

// MemoryStore is an in-memory Store whose sessions expire after a TTL and
// are evicted least-recently-used first once capacity is reached.
type MemoryStore struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *session]
	closed bool

	ttl        time.Duration
	capacity   int
	quotaBytes int
	onEvict    func(sessionID string)
}

// NewMemoryStore creates a MemoryStore configured by opts.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		ttl:        defaultTTL,
		capacity:   defaultCapacity,
		quotaBytes: defaultQuotaBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = expirable.NewLRU[string, *session](s.capacity, func(id string, _ *session) {
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}, s.ttl)
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	const op = "repository.get"
	if err := s.check(ctx, sessionID, key); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	sess, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, false, nil
	}
	v, ok := sess.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store. It fails with ErrQuotaExceeded when the session
// would outgrow its quota; the previous value is then left untouched.
func (s *MemoryStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	const op = "repository.set"
	if err := s.check(ctx, sessionID, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	cur, ok := s.cache.Peek(sessionID)
	if !ok {
		cur = &session{}
	}
	next := cur.with(key, append([]byte(nil), value...))
	if next.size > s.quotaBytes {
		return fmt.Errorf("%s: %w (%d > %d bytes)", op, ErrQuotaExceeded, next.size, s.quotaBytes)
	}
	s.cache.Add(sessionID, next)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.cache.Len()
}

// Close drops every session. Later calls fail with ErrUnavailable until
// Reopen. The cache's expiry goroutine lives as long as the process, so a
// closed store is meant to be reopened rather than replaced.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache.Purge()
	return nil
}

// Reopen makes a closed store usable again, starting with no sessions.
func (s *MemoryStore) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
}

func (s *MemoryStore) check(ctx context.Context, sessionID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" || key == "" {
		return ErrInvalidKey
	}
	return nil
}
