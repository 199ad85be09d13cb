// Package server initializes and runs the sharing server: database and
// migrations, the service layer, the sync event publisher, and the HTTP
// API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lockerhq/locker/internal/logging"
	"github.com/lockerhq/locker/internal/server/config"
	"github.com/lockerhq/locker/internal/server/httpapi"
	"github.com/lockerhq/locker/internal/server/notify"
	"github.com/lockerhq/locker/internal/server/repositories/repomanager"
	"github.com/lockerhq/locker/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	notifier notify.Notifier
	router   http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.RedisURL != "" {
		rn, err := notify.NewRedisNotifier(cfg.RedisURL, cfg.SyncChannel)
		if err != nil {
			return nil, fmt.Errorf("notifier init error: %w", err)
		}
		notifier = rn
	}

	rev := services.NewRevisionService(repos)
	sharing := services.NewSharingService(db, repos, rev, notifier, logger)
	membership := services.NewMembershipService(db, repos, rev, notifier, logger)
	access := services.NewAccessResolver(db, repos)

	h := httpapi.NewHandler(sharing, membership, access, logger)
	router := httpapi.NewRouter(h, []byte(cfg.SecretKey))

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		notifier: notifier,
		router:   router,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	if c, ok := app.notifier.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			app.logger.Warn(ctx, "notifier close error", "error", err.Error())
		}
	}
	return app.db.Close()
}
