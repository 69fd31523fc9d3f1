// Package bootstrap wires config into the service graph shared by cmd/api and cmd/intel.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/market-intel/internal/application"
	"github.com/bryanwahyu/market-intel/internal/application/intel"
	"github.com/bryanwahyu/market-intel/internal/config"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/history"
	"github.com/bryanwahyu/market-intel/internal/infra/ai/gemini"
	"github.com/bryanwahyu/market-intel/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/market-intel/internal/infra/db/mysql"
	"github.com/bryanwahyu/market-intel/internal/infra/db/postgres"
	"github.com/bryanwahyu/market-intel/internal/infra/db/sqlite"
	"github.com/bryanwahyu/market-intel/internal/infra/storage"
	"github.com/bryanwahyu/market-intel/internal/middleware"
)

type App struct {
	Service  *intel.Service
	Session  *intel.Session
	History  *history.Store
	Checkers map[string]middleware.HealthChecker

	closers []func() error
}

// Build connects the history backend, the AI provider and the optional
// artifact store. Close releases whatever was opened, also on error.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Checkers: map[string]middleware.HealthChecker{}}

	backend, err := a.historyBackend(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := history.New(ctx, backend, log.WithField("component", "history"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.History = store
	a.Checkers["history"] = middleware.CheckerFunc(store.Ping)

	ai, err := NewAIClient(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	artifacts, err := artifactStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Service = &intel.Service{
		Generator: ai,
		Responder: ai,
		History:   store,
		Artifacts: artifacts,
		Clock:     application.SystemClock{},
		Log:       log,
	}
	a.Session = intel.NewSession(a.Service, intel.WithProgressInterval(cfg.Progress.Interval))
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) historyBackend(ctx context.Context, cfg *config.Config) (history.Backend, error) {
	switch cfg.History.Backend {
	case "memory":
		return history.NewMemoryBackend(nil), nil
	case "file":
		return history.NewFileBackend(cfg.History.Dir)
	case "sqlite":
		db, err := sqlite.Connect(ctx, cfg.History.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite connect: %w", err)
		}
		a.track(db)
		b := sqlite.NewKVBackend(db)
		return b, b.Migrate(ctx)
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		a.track(db)
		b := mysqlp.NewKVBackend(db)
		return b, b.Migrate(ctx)
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.track(db)
		b := postgres.NewKVBackend(db)
		return b, b.Migrate(ctx)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func (a *App) track(db *sql.DB) {
	a.closers = append(a.closers, db.Close)
	a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
}

// NewAIClient returns the configured provider.
func NewAIClient(ctx context.Context, cfg *config.Config) (report.Client, error) {
	switch cfg.AI.Provider {
	case "gemini":
		return gemini.NewClient(ctx, gemini.Options{
			APIKey:      cfg.AI.GeminiAPIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			BaseURL:     cfg.AI.BaseURL,
		})
	case "openai":
		return openai.NewClient(cfg.AI.OpenAIAPIKey, cfg.AI.Model, cfg.AI.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// artifactStore is nil when neither minio nor an export dir is configured.
func artifactStore(ctx context.Context, cfg *config.Config) (report.ArtifactStore, error) {
	switch {
	case cfg.Minio.Enabled:
		s, err := storage.NewMinio(ctx, storage.MinioOptions{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			Bucket:     cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
			PresignTTL: cfg.Minio.PresignTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return s, nil
	case cfg.Export.Dir != "":
		s, err := storage.NewLocal(cfg.Export.Dir, cfg.Export.BaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}
