// Package app wires configuration, storage, the backend client and the
// session model together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/medrex/clinic-portal/internal/auth"
	"github.com/medrex/clinic-portal/internal/backend"
	"github.com/medrex/clinic-portal/internal/guard"
	"github.com/medrex/clinic-portal/internal/menu"
	"github.com/medrex/clinic-portal/internal/portal"
	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/config"
	"github.com/medrex/clinic-portal/pkg/database"
	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/monitoring"
)

// ServiceName labels metrics, traces and health reports
const ServiceName = "clinicctl"

// Version is set at build time
var Version = "dev"

// App holds the wired components
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Metrics   *monitoring.MetricsCollector
	Health    *monitoring.HealthManager
	Tracer    trace.Tracer
	Storage   session.Storage
	Store     *session.Store
	Backend   *backend.Client
	Lifecycle *auth.Lifecycle
	Guard     *guard.Guard
	Menu      *menu.Tracker
	Redirects *portal.RedirectRecorder

	tracing *monitoring.TracingManager
	db      *database.DB
}

// Option customizes New
type Option func(*options)

type options struct {
	logOutput io.Writer
	storage   session.Storage
}

// WithLogOutput sends logs to w instead of stderr
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithStorage bypasses the configured storage driver
func WithStorage(storage session.Storage) Option {
	return func(o *options) { o.storage = storage }
}

// New wires every component from cfg. Nothing is restored yet.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	log := logger.NewWithOutput(cfg.LogLevel, o.logOutput)
	a := &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   monitoring.NewMetricsCollector(ServiceName),
		Health:    monitoring.NewHealthManager(ServiceName, Version),
		Store:     session.NewStore(),
		Redirects: portal.NewRedirectRecorder(),
	}

	if err := a.setupTracing(ctx); err != nil {
		return nil, err
	}

	storage := o.storage
	if storage == nil {
		var err error
		storage, err = a.openStorage(ctx)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	a.Storage = storage

	client, err := backend.NewClient(cfg.Backend.BaseURL, time.Duration(cfg.Backend.Timeout)*time.Second, log)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	a.Backend = client

	a.Lifecycle, err = auth.NewLifecycle(auth.Options{
		Store:       a.Store,
		Storage:     a.Storage,
		Auth:        client,
		Permissions: client,
		Tokens:      client,
		Navigator:   a.Redirects,
		LoginPath:   cfg.Routes.Login,
		Metrics:     a.Metrics,
		Tracer:      a.Tracer,
		Logger:      log,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create auth lifecycle: %w", err)
	}

	a.Guard = guard.New(a.Store, a.Redirects, guard.Config{
		LoginPath:   cfg.Routes.Login,
		DefaultPath: cfg.Routes.Default,
	}, a.Metrics, log)

	a.Menu = menu.NewTracker(a.Store, func(items []menu.Item) {
		log.WithComponent("menu").WithField("items", menu.IDs(items)).Debug("Menu rebuilt")
	})

	a.Health.RegisterChecker("session", portal.SessionHealth(a.Lifecycle))
	a.Health.RegisterChecker("storage", portal.StorageHealth(a.Storage))
	if a.db != nil {
		db := a.db
		a.Health.RegisterChecker("database", monitoring.HealthCheckFunc(func(ctx context.Context) monitoring.HealthCheck {
			if err := db.Health(ctx); err != nil {
				return monitoring.HealthCheck{Status: monitoring.HealthStatusUnhealthy, Message: err.Error()}
			}
			return monitoring.HealthCheck{Status: monitoring.HealthStatusHealthy}
		}))
	}

	log.WithFields(map[string]interface{}{
		"version":        Version,
		"backend":        cfg.Backend.BaseURL,
		"storage_driver": cfg.Storage.Driver,
		"sealed":         cfg.Storage.EncryptionKey != "",
	}).Debug("Application wired")

	return a, nil
}

func (a *App) setupTracing(ctx context.Context) error {
	if !a.Config.Tracing.Enabled {
		a.Tracer = otel.Tracer(ServiceName)
		return nil
	}

	tm, err := monitoring.NewTracingManager(ctx, &monitoring.TracingConfig{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Endpoint:       a.Config.Tracing.Endpoint,
		Environment:    a.Config.Tracing.Environment,
		SamplingRate:   a.Config.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracing = tm
	a.Tracer = tm.Tracer()
	return nil
}

// openStorage builds the configured storage driver, sealed when an
// encryption key is set
func (a *App) openStorage(ctx context.Context) (session.Storage, error) {
	cfg := a.Config.Storage

	var storage session.Storage
	switch cfg.Driver {
	case config.StorageDriverMemory:
		storage = session.NewMemoryStorage()
	case config.StorageDriverFile:
		fs, err := session.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		storage = fs
	case config.StorageDriverPostgres:
		db, err := database.NewConnection(ctx, &a.Config.Database, a.Logger)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		storage = session.NewPostgresStorage(db.DB, cfg.Profile)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}

	if cfg.EncryptionKey == "" {
		return storage, nil
	}
	return session.NewSealedStorage(storage, cfg.EncryptionKey)
}

// Restore restores the persisted session. It is bounded by the backend
// timeout so a stuck storage never leaves the session loading.
func (a *App) Restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.Config.Backend.Timeout)*time.Second)
	defer cancel()
	a.Lifecycle.Restore(ctx)
}

// Portal builds the local companion HTTP server
func (a *App) Portal() *portal.Server {
	return portal.NewServer(portal.Deps{
		Lifecycle:  a.Lifecycle,
		Store:      a.Store,
		Guard:      a.Guard,
		Menu:       a.Menu,
		Redirects:  a.Redirects,
		Metrics:    a.Metrics,
		Health:     a.Health,
		Tracer:     a.Tracer,
		Logger:     a.Logger,
		Monitoring: a.Config.Monitoring,
		Debug:      a.Config.LogLevel == "debug",
	})
}

// Close releases every resource. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Lifecycle != nil {
		a.Lifecycle.Close()
	}
	if a.Menu != nil {
		a.Menu.Stop()
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracing: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
