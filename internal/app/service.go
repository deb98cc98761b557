// Package service provides the footprint estimator that backs the HTTP
// bindings: submit, load (restore) and reset.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ecotrack/internal/adapters/repository"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	"github.com/okian/ecotrack/pkg/metrics"
)

// ErrNotStarted is returned by storage-backed operations before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the footprint estimator.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	ownStore *repository.MemoryStore
	log      *repository.SessionLog
	clock    Clock

	sessionTTL      time.Duration
	sessionCapacity int
	sessionQuota    int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the default in-memory session store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the clock used to stamp records.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithSessionCapacity bounds the number of concurrent sessions.
func WithSessionCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sessionCapacity = n
		}
	}
}

// WithSessionQuota bounds the bytes stored per session.
func WithSessionQuota(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sessionQuota = n
		}
	}
}

// New constructs a Service. Call Start before serving requests.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           SystemClock,
		sessionTTL:      30 * time.Minute,
		sessionCapacity: 10_000,
		sessionQuota:    5 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the session store. It is safe to call more than once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	store := s.store
	if store == nil {
		if s.ownStore == nil {
			log := s.logger
			s.ownStore = repository.NewMemoryStore(
				repository.WithTTL(s.sessionTTL),
				repository.WithCapacity(s.sessionCapacity),
				repository.WithQuotaBytes(s.sessionQuota),
				repository.WithOnEvict(func(id string) {
					log.Debug(context.Background(), "session dropped", logger.String("session", id))
				}),
			)
		} else {
			// The built-in store is kept across restarts; see MemoryStore.Close.
			s.ownStore.Reopen()
		}
		store = s.ownStore
	}
	s.log = repository.NewSessionLog(store)
	s.started = true

	s.logger.Info(ctx, "footprint estimator started",
		logger.Duration("sessionTTL", s.sessionTTL),
		logger.Int("sessionCapacity", s.sessionCapacity),
		logger.Int("sessionQuotaBytes", s.sessionQuota),
		logger.Bool("externalStore", s.store != nil),
	)
	return nil
}

// Stop releases the session store. Sessions held in memory are lost.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownStore != nil {
		_ = s.ownStore.Close()
	}
	s.log = nil
	s.started = false
	s.logger.Info(context.Background(), "footprint estimator stopped")
}

func (s *Service) sessionLog() (*repository.SessionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.log == nil {
		return nil, ErrNotStarted
	}
	return s.log, nil
}

func (s *Service) currentLogger() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

// Submit handles a form submission: it coerces and validates the raw
// fields, computes and classifies the estimate, and appends a record to the
// session log. Invalid input never reaches the log. A failed append does not
// fail the submission; the outcome reports it through Persisted/PersistErr.
func (s *Service) Submit(ctx context.Context, sessionID string, in types.RawInput) types.Outcome {
	transport := footprint.ParseField(in.Transport)
	meals := footprint.ParseField(in.Meals)
	energy := footprint.ParseField(in.Electricity)
	log := s.currentLogger()

	if errs := footprint.Validate(transport, meals, energy); len(errs) > 0 {
		metrics.RecordSubmission(metrics.OutcomeInvalid)
		for _, e := range errs {
			metrics.RecordValidationFailure(string(e.Field))
		}
		log.Debug(ctx, "submission rejected",
			logger.String("session", sessionID),
			logger.Int("errors", len(errs)),
		)
		return types.Outcome{
			State:     types.StateIdle,
			Message:   footprint.FixErrorsPrompt,
			ErrorText: footprint.JoinErrors(errs),
			Errors:    errs,
		}
	}

	sample := model.InputSample{TransportKm: transport, Meals: int(meals), EnergyKWh: energy}
	total := footprint.Estimate(sample.TransportKm, float64(sample.Meals), sample.EnergyKWh)
	tier := footprint.Classify(total)
	metrics.RecordSubmission(metrics.OutcomeAccepted)
	metrics.RecordEstimate(string(tier), total)

	rec, err := s.RecordSubmission(ctx, sessionID, sample, total, s.clock)
	out := types.Outcome{
		State:      types.StateResultShown,
		Message:    footprint.ResultMessage(total, tier),
		Total:      total,
		Tier:       tier,
		Record:     &rec,
		Persisted:  err == nil,
		PersistErr: err,
	}
	log.Debug(ctx, "estimate computed",
		logger.String("session", sessionID),
		logger.Float64("total", total),
		logger.String("tier", string(tier)),
		logger.Bool("persisted", out.Persisted),
	)
	return out
}

// RecordSubmission stamps a record for sample using clock and appends it to
// the session log. The record is returned even when the append fails.
func (s *Service) RecordSubmission(ctx context.Context, sessionID string, sample model.InputSample, total float64, clock Clock) (model.EstimateRecord, error) {
	const op = "service.record_submission"
	if clock == nil {
		clock = SystemClock
	}
	rec := model.NewEstimateRecord(sample, total, clock.Now())

	sl, err := s.sessionLog()
	if err == nil {
		err = sl.Append(ctx, sessionID, rec)
	}
	if err != nil {
		metrics.RecordStorageError("append", storageKind(err))
		s.currentLogger().Warn(ctx, "session record not persisted",
			logger.String("session", sessionID),
			logger.Error(err),
		)
		return rec, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// Restore handles a page load: when the session log holds a record, the
// last total is shown; otherwise the idle prompt. Storage errors fall back
// to the idle prompt.
func (s *Service) Restore(ctx context.Context, sessionID string) types.Outcome {
	out, _, _ := s.Snapshot(ctx, sessionID)
	return out
}

// Snapshot reads the session log once and returns the restored view together
// with the records it was built from, so the shown total is always the last
// record's. On a storage error the view is idle and records are nil.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (types.Outcome, []model.EstimateRecord, error) {
	sl, err := s.sessionLog()
	var records []model.EstimateRecord
	if err == nil {
		records, err = sl.Records(ctx, sessionID)
	}
	switch {
	case err != nil:
		metrics.RecordRestore(metrics.RestoreError)
		metrics.RecordStorageError("read", storageKind(err))
		s.currentLogger().Warn(ctx, "session restore failed",
			logger.String("session", sessionID),
			logger.Error(err),
		)
		return types.Idle(), nil, err
	case len(records) == 0:
		metrics.RecordRestore(metrics.RestoreEmpty)
		return types.Idle(), records, nil
	}

	metrics.RecordRestore(metrics.RestoreHit)
	last := records[len(records)-1]
	return types.Outcome{
		State:     types.StateResultShown,
		Message:   footprint.RestoredMessage(last.Total),
		Total:     last.Total,
		Tier:      footprint.Classify(last.Total),
		Record:    &last,
		Persisted: true,
	}, records, nil
}

// Reset handles the clear action.
func (s *Service) Reset(_ context.Context) types.Outcome {
	return types.Idle()
}

// History returns the session's records in append order.
func (s *Service) History(ctx context.Context, sessionID string) ([]model.EstimateRecord, error) {
	sl, err := s.sessionLog()
	if err != nil {
		return nil, err
	}
	return sl.Records(ctx, sessionID)
}

// ActiveSessions returns the number of sessions in the built-in store, or
// -1 when an external store is used.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ownStore == nil {
		if s.started {
			return -1
		}
		return 0
	}
	return s.ownStore.Len()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	active := s.ActiveSessions()

	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]interface{}{
		"started":         s.started,
		"sessionTTL":      s.sessionTTL.String(),
		"sessionCapacity": s.sessionCapacity,
		"factors":         footprint.Factors(),
	}
	if active >= 0 {
		stats["activeSessions"] = active
		metrics.UpdateActiveSessions(active)
	}
	return stats
}

func storageKind(err error) string {
	if errors.Is(err, ErrNotStarted) {
		return "not_started"
	}
	return repository.Kind(err)
}
