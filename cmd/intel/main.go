package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanwahyu/market-intel/internal/application/intel"
	"github.com/bryanwahyu/market-intel/internal/bootstrap"
	"github.com/bryanwahyu/market-intel/internal/config"
	"github.com/bryanwahyu/market-intel/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, closeEnv := newRootCmd(openFromConfig)
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeEnv(); cerr != nil && err == nil {
		fmt.Fprintln(os.Stderr, cerr)
		err = cerr
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// env is what every subcommand works on.
type env struct {
	svc   *intel.Service
	sess  *intel.Session
	close func() error
}

type opener func(ctx context.Context) (*env, error)

// openFromConfig logs to stderr (and log.file) so stdout stays clean for reports.
func openFromConfig(ctx context.Context) (*env, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if os.Getenv("INTEL_LOG_LEVEL") == "" && level == "info" {
		level = "warn"
	}
	log, closeLog, err := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, File: cfg.Log.File, Stdout: os.Stderr})
	if err != nil {
		return nil, err
	}

	app, err := bootstrap.Build(ctx, cfg, log.WithField("cmd", "intel"))
	if err != nil {
		closeLog()
		return nil, err
	}
	return &env{
		svc:  app.Service,
		sess: app.Session,
		close: func() error {
			err := app.Close()
			if cerr := closeLog(); err == nil {
				err = cerr
			}
			return err
		},
	}, nil
}
