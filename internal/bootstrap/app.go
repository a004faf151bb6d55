package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/config"
	"github.com/yanqian/healthsync/internal/infra/queue"
)

// App encapsulates the HTTP server and the sync job worker.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    healthsync.Service
	jobs   queue.HandlerQueue
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc healthsync.Service, jobs queue.HandlerQueue) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With("component", "bootstrap"),
		server: server,
		svc:    svc,
		jobs:   jobs,
	}
}

// Run starts the job worker and the HTTP server, and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.jobs.SetHandler(healthsync.NewJobHandler(a.svc, a.logger))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
