package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/ecotrack/pkg/logger"
)

// percentageMultiplier converts ratios to percentages.
const percentageMultiplier = 100

// sessionResult is what one simulated browser session observed.
type sessionResult struct {
	stats Stats
	errs  []error
}

// Run executes the smoke test against cfg.BaseURL. It returns the run
// statistics and an error joining every mismatch found.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("smoke")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting ecotrack smoke test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	probe, err := NewClient(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if err := probe.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Samples are generated up front so a seed reproduces a run exactly.
	gen := NewGenerator(cfg.Seed, cfg.InvalidRate)
	plans := make([][]Sample, cfg.Sessions)
	for i := range plans {
		plans[i] = make([]Sample, cfg.Submissions)
		for j := range plans[i] {
			plans[i][j] = gen.Next()
		}
	}

	jobs := make(chan []Sample, cfg.Workers)
	results := make(chan sessionResult, cfg.Sessions)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range jobs {
				results <- runSession(ctx, cfg, log, plan)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, plan := range plans {
			select {
			case <-ctx.Done():
				return
			case jobs <- plan:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for r := range results {
		stats.merge(r.stats)
		errs = append(errs, r.errs...)
	}
	stats.Mismatches = len(errs)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return stats, errors.Join(errs...)
}

// runSession submits plan in order from one cookie jar, then restores the
// session and checks the log.
func runSession(ctx context.Context, cfg *Config, log logger.Logger, plan []Sample) sessionResult {
	var res sessionResult
	res.stats.Sessions = 1

	client, err := NewClient(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		res.errs = append(res.errs, err)
		return res
	}

	var persisted []Sample
	for _, s := range plan {
		if ctx.Err() != nil {
			return res
		}
		status, out, err := client.Estimate(ctx, s)
		res.stats.Submitted++
		if err != nil {
			res.errs = append(res.errs, err)
			continue
		}
		if status == http.StatusTooManyRequests {
			res.stats.RateLimited++
			continue
		}
		if err := verifyEstimate(s, status, out); err != nil {
			res.errs = append(res.errs, err)
			continue
		}
		if !s.Valid {
			res.stats.Rejected++
			continue
		}
		res.stats.Accepted++
		if out.Persisted != nil && *out.Persisted {
			persisted = append(persisted, s)
		} else {
			res.stats.NotSaved++
		}
		if cfg.Verbose {
			log.Info(ctx, "estimate verified",
				logger.String("sample", s.ID),
				logger.Float64("total", s.WantTotal),
				logger.String("tier", string(s.WantTier)),
			)
		}
	}

	status, out, err := client.Session(ctx)
	switch {
	case err != nil:
		res.errs = append(res.errs, err)
	case status == http.StatusTooManyRequests:
		res.stats.RateLimited++
	default:
		if err := verifySession(persisted, status, out); err != nil {
			res.errs = append(res.errs, err)
		} else {
			res.stats.Restored++
		}
	}
	return res
}

func (s *Stats) merge(o Stats) {
	s.Sessions += o.Sessions
	s.Submitted += o.Submitted
	s.Accepted += o.Accepted
	s.Rejected += o.Rejected
	s.NotSaved += o.NotSaved
	s.Restored += o.Restored
	s.RateLimited += o.RateLimited
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("sessions", stats.Sessions),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("notSaved", stats.NotSaved),
		logger.Int("restored", stats.Restored),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("mismatches", stats.Mismatches),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
