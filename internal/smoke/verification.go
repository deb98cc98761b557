package smoke

import (
	"fmt"
	"math"
	"net/http"
	"slices"

	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
)

// verifyEstimate checks one /api/estimate answer against its sample.
func verifyEstimate(s Sample, status int, out Outcome) error {
	if !s.Valid {
		if status != http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: sample %s: status %d, want 422", ErrMismatch, s.ID, status)
		}
		fields := make([]footprint.Field, 0, len(out.Errors))
		for _, e := range out.Errors {
			fields = append(fields, e.Field)
		}
		if !slices.Equal(fields, s.InvalidOf) {
			return fmt.Errorf("%w: sample %s: error fields %v, want %v", ErrMismatch, s.ID, fields, s.InvalidOf)
		}
		if out.Record != nil {
			return fmt.Errorf("%w: sample %s: invalid input produced a record", ErrMismatch, s.ID)
		}
		return nil
	}

	switch {
	case status != http.StatusOK:
		return fmt.Errorf("%w: sample %s: status %d, want 200", ErrMismatch, s.ID, status)
	case out.Total == nil || *out.Total != s.WantTotal:
		return fmt.Errorf("%w: sample %s: total %v, want %v", ErrMismatch, s.ID, deref(out.Total), s.WantTotal)
	case out.Tier != s.WantTier:
		return fmt.Errorf("%w: sample %s: tier %s, want %s", ErrMismatch, s.ID, out.Tier, s.WantTier)
	case out.Message != footprint.ResultMessage(s.WantTotal, s.WantTier):
		return fmt.Errorf("%w: sample %s: message %q", ErrMismatch, s.ID, out.Message)
	case out.Record == nil:
		return fmt.Errorf("%w: sample %s: no record", ErrMismatch, s.ID)
	}
	return verifyRecord(s, *out.Record)
}

func verifyRecord(s Sample, rec model.EstimateRecord) error {
	if rec.Transport != s.Want.TransportKm || rec.Meals != s.Want.Meals || rec.Energy != s.Want.EnergyKWh {
		return fmt.Errorf("%w: sample %s: record inputs %+v", ErrMismatch, s.ID, rec)
	}
	want := footprint.Estimate(rec.Transport, float64(rec.Meals), rec.Energy)
	if rec.Total != want {
		return fmt.Errorf("%w: sample %s: record total %v, want %v", ErrMismatch, s.ID, rec.Total, want)
	}
	if _, err := rec.Time(); err != nil {
		return fmt.Errorf("%w: sample %s: timestamp %q: %w", ErrMismatch, s.ID, rec.TS, err)
	}
	return nil
}

// verifySession checks the restored view and the log of one session
// against the samples the service persisted, in order.
func verifySession(persisted []Sample, status int, out Outcome) error {
	if status != http.StatusOK {
		return fmt.Errorf("%w: session status %d, want 200", ErrMismatch, status)
	}
	if len(persisted) == 0 {
		if out.State != "idle" || out.Message != footprint.IdlePrompt {
			return fmt.Errorf("%w: empty session restored as %q", ErrMismatch, out.Message)
		}
		return nil
	}

	last := persisted[len(persisted)-1]
	if out.Message != footprint.RestoredMessage(last.WantTotal) {
		return fmt.Errorf("%w: restored message %q, want last total %v", ErrMismatch, out.Message, last.WantTotal)
	}
	if len(out.Records) != len(persisted) {
		return fmt.Errorf("%w: session holds %d records, want %d", ErrMismatch, len(out.Records), len(persisted))
	}
	for i, rec := range out.Records {
		if err := verifyRecord(persisted[i], rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
