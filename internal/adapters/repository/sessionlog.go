package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/okian/ecotrack/internal/domain/model"
)

// LogKey is the storage key holding a session's estimate records.
const LogKey = "ecotrack"

// SessionLog is the ordered, append-only list of estimate records of each
// session, stored as a JSON array under LogKey.
type SessionLog struct {
	// mu serialises read-then-write appends.
	mu    sync.Mutex
	store Store
}

// NewSessionLog wraps store.
func NewSessionLog(store Store) *SessionLog {
	return &SessionLog{store: store}
}

// Records returns the session's records in append order. A session that
// never stored anything has no records.
func (l *SessionLog) Records(ctx context.Context, sessionID string) ([]model.EstimateRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(ctx, sessionID)
}

// Last returns the most recent record. ok is false when the log is empty.
func (l *SessionLog) Last(ctx context.Context, sessionID string) (rec model.EstimateRecord, ok bool, err error) {
	records, err := l.Records(ctx, sessionID)
	if err != nil || len(records) == 0 {
		return model.EstimateRecord{}, false, err
	}
	return records[len(records)-1], true, nil
}

// Append adds rec to the end of the session's log.
func (l *SessionLog) Append(ctx context.Context, sessionID string, rec model.EstimateRecord) error {
	const op = "repository.append"
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read(ctx, sessionID)
	if err != nil {
		return err
	}
	records = append(records, rec)
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	return l.store.Set(ctx, sessionID, LogKey, data)
}

func (l *SessionLog) read(ctx context.Context, sessionID string) ([]model.EstimateRecord, error) {
	const op = "repository.read"
	data, ok, err := l.store.Get(ctx, sessionID, LogKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var records []model.EstimateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrCorrupt, err)
	}
	return records, nil
}
