// Package app wires configuration, storage, the gateway client, and
// the HTTP server into one runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/abode/internal/ai"
	"github.com/mr-karan/abode/internal/config"
	"github.com/mr-karan/abode/internal/core"
	"github.com/mr-karan/abode/internal/discord"
	"github.com/mr-karan/abode/internal/postgres"
	"github.com/mr-karan/abode/internal/server"
	"github.com/mr-karan/abode/pkg/logger"
)

// App represents the core application context, holding dependencies
// and configuration.
type App struct {
	Config   *config.Config
	Store    *postgres.Store
	Archiver *core.Archiver
	Logger   *slog.Logger
	Version  string

	server *server.Server
	client *discord.Client

	enableAPI    bool
	enableClient bool
}

// Options contains configuration needed when creating a new App.
type Options struct {
	ConfigPath   string
	Version      string
	EnableAPI    bool
	EnableClient bool
}

// New creates and configures a new App instance.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger.New(cfg.Logging.Level == "debug"),
		Version:      opts.Version,
		enableAPI:    opts.EnableAPI,
		enableClient: opts.EnableClient,
	}, nil
}

// Initialize sets up the database connection and the enabled
// components.
func (a *App) Initialize(ctx context.Context) error {
	store, err := postgres.New(ctx, postgres.Options{
		Config: a.Config.Postgres,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.Store = store
	a.Archiver = core.NewArchiver(store, a.Logger)

	if a.enableAPI {
		a.server = server.New(server.Options{
			Config: a.Config.Server,
			Store:  store,
			Assist: ai.New(a.Config.AI, a.Logger),
			Logger: a.Logger,
		})
	}

	if a.enableClient {
		if a.Config.Discord.Token == "" {
			return fmt.Errorf("discord token is required to run the gateway client")
		}
		client, err := discord.New(discord.Options{
			Token:    a.Config.Discord.Token,
			Logger:   a.Logger,
			Archiver: a.Archiver,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize gateway client: %w", err)
		}
		a.client = client
	}

	return nil
}

// Run starts the enabled components and blocks until ctx is
// cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("http server failed: %w", err)
			}
		}()
	}
	if a.client != nil {
		go func() {
			if err := a.client.Run(ctx); err != nil {
				errCh <- fmt.Errorf("gateway client failed: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	a.Logger.Info("shutting down")
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("error shutting down http server", "error", err)
		}
	}
	a.Store.Close()
	return runErr
}
