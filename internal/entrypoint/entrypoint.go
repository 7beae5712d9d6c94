// Package entrypoint builds the application's collaborators from
// configuration and runs the HTTP server.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/database"
	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/database/settings"
	"github.com/mrlokans/roots/internal/fsx"
	http_controllers "github.com/mrlokans/roots/internal/http"
	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/logging"
	"github.com/mrlokans/roots/internal/scheduler"
	"github.com/mrlokans/roots/internal/services"
	"github.com/mrlokans/roots/internal/settingsstore"
)

const shutdownTimeout = 10 * time.Second

// App holds the long-lived collaborators shared by commands.
type App struct {
	Config   *config.Config
	DB       *database.Database
	Books    *books.Repository
	Settings *settingsstore.SettingsStore
	Catalog  *catalog.Client
	Logger   *slog.Logger
}

// Open connects to the library database and builds the catalog client.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.NewDatabase(cfg.LibraryPath(), logging.IsDebug(cfg.Log))
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Books:    books.NewRepository(db.DB),
		Settings: settingsstore.New(settings.NewRepository(db.DB)),
		Catalog:  catalog.NewClient(cfg.Catalog),
		Logger:   logger,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Pipeline builds an import pipeline for imp that proposes destinations in
// the library directory.
func (a *App) Pipeline(imp config.Import) (*importer.Pipeline, error) {
	return importer.New(a.Config.Directory, imp,
		importer.WithCatalog(a.Catalog),
		importer.WithLogger(a.Logger))
}

// Library builds the import service for imp. Emptied source directories
// are pruned up to pruneRoot.
func (a *App) Library(imp config.Import, pruneRoot string) (*services.Library, error) {
	pipeline, err := a.Pipeline(imp)
	if err != nil {
		return nil, err
	}
	exec := &fsx.Executor{Prune: imp.Prune, PruneRoot: pruneRoot, Logger: a.Logger}
	return services.NewLibrary(a.Config.Directory, pipeline, exec, a.Books, services.WithLogger(a.Logger)), nil
}

// Run serves the HTTP API and the scheduled inbox import until ctx is done.
func (a *App) Run(ctx context.Context, version string) error {
	cfg := a.Config
	a.Logger.Info("Starting roots", "version", version, "library", cfg.Directory)

	routerCfg := http_controllers.RouterConfig{
		Books:    a.Books,
		Database: a.DB,
		Catalog:  a.Catalog,
		Token:    cfg.Server.Token,
		Logger:   a.Logger,
		Version:  version,
	}

	if cfg.Server.Inbox != "" {
		// Files picked up from the inbox are always moved out of it.
		imp := cfg.Import
		imp.Relocate = true
		lib, err := a.Library(imp, cfg.Server.Inbox)
		if err != nil {
			return err
		}
		inbox := scheduler.NewInboxScheduler(cfg.Server.Inbox, cfg.Server.Schedule, lib, a.Settings, a.Logger)
		if err := inbox.Start(ctx); err != nil {
			return err
		}
		defer inbox.Stop()

		routerCfg.Inbox = inbox
		routerCfg.InboxStatus = a.Settings
	} else {
		a.Logger.Info("Inbox import disabled; set server.inbox to enable")
	}

	if !logging.IsDebug(cfg.Log) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := http_controllers.NewRouter(routerCfg)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return Serve(ctx, router, addr, a.Logger)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, handler http.Handler, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}
