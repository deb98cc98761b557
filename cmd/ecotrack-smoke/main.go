package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/ecotrack/internal/smoke"
	"github.com/okian/ecotrack/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// defaultRunTimeout bounds a whole run.
const defaultRunTimeout = 5 * time.Minute

type runFlags struct {
	cfg        smoke.Config
	logFormat  string
	runTimeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:           "ecotrack-smoke",
		Short:         "Drive a running EcoTrack service and verify its estimates and session log",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				f.cfg.Seed = uint64(time.Now().UnixNano())
			}
			return runSmoke(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.cfg.BaseURL, "url", smoke.DefaultBaseURL, "Base URL of the service")
	flags.IntVar(&f.cfg.Sessions, "sessions", smoke.DefaultSessions, "Browser sessions to simulate")
	flags.IntVar(&f.cfg.Submissions, "submissions", smoke.DefaultSubmissions, "Submissions per session")
	flags.IntVar(&f.cfg.Workers, "workers", runtime.NumCPU(), "Sessions driven concurrently")
	flags.DurationVar(&f.cfg.Timeout, "timeout", smoke.DefaultTimeout, "HTTP request timeout")
	flags.Uint64Var(&f.cfg.Seed, "seed", 0, "Sample generator seed (default: time based)")
	flags.Float64Var(&f.cfg.InvalidRate, "invalid-rate", 0.2, "Share of submissions generated invalid")
	flags.BoolVar(&f.cfg.Verbose, "verbose", false, "Log every verified submission")
	flags.StringVar(&f.logFormat, "log-format", logger.FormatText, "Log format: text or json")
	flags.DurationVar(&f.runTimeout, "run-timeout", defaultRunTimeout, "Upper bound for the whole run")

	return cmd
}

func runSmoke(ctx context.Context, f *runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := logger.InitWithWriter(os.Stdout, f.logFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.runTimeout)
	defer cancel()

	logger.Get().Info(ctx, "smoke seed", logger.Any("seed", f.cfg.Seed))
	if _, err := smoke.Run(ctx, &f.cfg); err != nil {
		return fmt.Errorf("smoke test failed: %w", err)
	}
	return nil
}
