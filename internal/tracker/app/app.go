// Package app assembles the tracker: configuration, database, audit sinks,
// services, and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	httpapi "github.com/untoldhq/fintrack/internal/tracker/http"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/internal/tracker/store/drivers/sqlite"
	"github.com/untoldhq/fintrack/pkg/cryptox"
	"github.com/untoldhq/fintrack/pkg/sessionx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the tracker service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	auditLog *os.File
	sessions *sessionx.Manager
	registry *prometheus.Registry
	metrics  *metrics.PrometheusCollector
	recorder *audit.Recorder

	loginService       *service.LoginService
	twoFactorService   *service.TwoFactorService
	categoryService    *service.CategoryService
	transactionService *service.TransactionService
	bootstrapService   *service.BootstrapService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "fintrack",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initAudit(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	sessions, err := sessionx.NewManager(
		cfg.SessionKey,
		cfg.SessionName,
		cfg.SessionTTL,
		cfg.Env == "prod",
	)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	app.sessions = sessions

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run seeds the database if needed, starts the server, and blocks until
// shutdown is requested.
func (app *Application) Run() error {
	if err := app.bootstrapService.Run(context.Background()); err != nil &&
		!errors.Is(err, service.ErrBootstrapAlready) {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	app.logger.Info("tracker starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tracker...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.auditLog != nil {
		if err := app.auditLog.Close(); err != nil {
			app.logger.Error("error closing audit log", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("tracker stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initAudit opens the audit log file and wires both sinks into the recorder.
func (app *Application) initAudit() error {
	f, err := os.OpenFile(app.cfg.AuditLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	app.auditLog = f

	app.registry = prometheus.NewRegistry()
	app.metrics = metrics.NewCollector(app.registry)

	app.recorder = audit.NewRecorder(
		app.logger,
		app.metrics,
		audit.NewJSONWriterSink(f),
		audit.NewStoreSink(app.db),
	)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.twoFactorService = &service.TwoFactorService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}
	app.loginService = &service.LoginService{
		Store:       app.db,
		Credentials: &service.CredentialService{Store: app.db},
		TwoFactor:   app.twoFactorService,
		Audit:       app.recorder,
		Metrics:     app.metrics,
	}
	app.categoryService = &service.CategoryService{Store: app.db, Audit: app.recorder}
	app.transactionService = &service.TransactionService{Store: app.db, Audit: app.recorder}
	app.bootstrapService = &service.BootstrapService{
		Store:         app.db,
		AdminEmail:    app.cfg.AdminEmail,
		AdminPassword: app.cfg.AdminPassword,
		AdminName:     app.cfg.AdminName,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.sessions,
		app.registry,
		app.logger,
	)
	router.LoginService = app.loginService
	router.TwoFactorService = app.twoFactorService
	router.CategoryService = app.categoryService
	router.TransactionService = app.transactionService
	router.AuditRecorder = app.recorder
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
