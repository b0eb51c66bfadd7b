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
	"time"

	"github.com/aussiebroadwan/sharebox/internal/fakebackend"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the development backend: an in-memory ShareBox API served
// over HTTP with periodic housekeeping.
type Application struct {
	cfg    Config
	logger *slog.Logger

	backend      *fakebackend.Server
	housekeeping *fakebackend.Housekeeping

	server *http.Server
}

// New creates a new Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sharebox-devserver",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initBackend(); err != nil {
		return nil, err
	}
	if err := app.seedUsers(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed backend.
func (app *Application) Handler() http.Handler { return app.server.Handler }

// Backend returns the in-memory backend.
func (app *Application) Backend() *fakebackend.Server { return app.backend }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("devserver starting",
		"port", app.cfg.Port,
		"base_path", app.cfg.BasePath,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeeping.Stop()
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
	app.logger.Info("shutting down devserver...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	app.logger.Info("devserver stopped")
	return nil
}

func (app *Application) initBackend() error {
	backend, err := fakebackend.New(fakebackend.Options{
		Secret:             []byte(app.cfg.JWTSecret),
		Issuer:             app.cfg.Issuer,
		AccessTTL:          app.cfg.AccessTTL,
		RefreshTTL:         app.cfg.RefreshTTL,
		BasePath:           app.cfg.BasePath,
		ReuseRefreshTokens: app.cfg.ReuseRefreshTokens,
		AuthRateLimit:      app.cfg.AuthRateLimit,
		Logger:             app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	app.backend = backend

	app.housekeeping = fakebackend.NewHousekeeping(backend, app.logger, app.cfg.HousekeepingInterval)
	return nil
}

func (app *Application) seedUsers() error {
	for _, u := range app.cfg.SeedUsers {
		created, err := app.backend.CreateUser(u.Username, u.Email, u.Password, u.Admin)
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
		app.logger.Info("seeded user", "username", created.Username, "user_id", created.ID, "admin", u.Admin)
	}
	return nil
}

func (app *Application) initHTTP() {
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.backend,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
