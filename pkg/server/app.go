package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinBoard/internal/service/ratelimit"
	"FinBoard/internal/usecase"
	"FinBoard/pkg/config"
	xhttp "FinBoard/pkg/http"
	applogger "FinBoard/pkg/logger"
)

const limiterSweep = time.Minute

// Closer is a resource the app releases on shutdown, in registration order.
type Closer struct {
	Name string
	io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	dashboard  *usecase.Dashboard
	data       *usecase.StockData
	refresher  *usecase.Refresher
	hub        *usecase.UpdateHub
	httpServer *xhttp.Server
	limiter    *ratelimit.Limiter
	closers    []Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	dashboard *usecase.Dashboard,
	data *usecase.StockData,
	refresher *usecase.Refresher,
	hub *usecase.UpdateHub,
	httpServer *xhttp.Server,
	limiter *ratelimit.Limiter,
	closers ...Closer,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log,
		dashboard:  dashboard,
		data:       data,
		refresher:  refresher,
		hub:        hub,
		httpServer: httpServer,
		limiter:    limiter,
		closers:    closers,
	}
}

func (a *App) Dashboard() *usecase.Dashboard { return a.dashboard }
func (a *App) StockData() *usecase.StockData { return a.data }
func (a *App) Logger() *applogger.Logger     { return a.log }

// StopPolling halts widget refresh loops. One-shot commands call it before
// Hydrate so that restoring the dashboard does not start provider traffic.
func (a *App) StopPolling() { a.refresher.Stop() }

// Hydrate restores the persisted dashboard. An unreachable store is an
// error: serving fresh state would overwrite the stored dashboard.
func (a *App) Hydrate(ctx context.Context) error {
	if err := a.dashboard.Hydrate(ctx); err != nil {
		a.log.Error("hydrate failed", applogger.Error(err))
		return err
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Hydrate(ctx); err != nil {
		a.Close()
		return err
	}
	a.log.Info("dashboard ready",
		applogger.Int("widgets", len(a.dashboard.Widgets())),
		applogger.Int("polling", a.refresher.Running()),
	)

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Forget(10 * limiterSweep); n > 0 {
				a.log.Debug("limiter buckets dropped", applogger.Int("count", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.Close()
	a.log.Info("shutdown complete")
	return nil
}

// Close stops polling, ends stream subscriptions and releases every
// registered resource. It is safe to call without Run.
func (a *App) Close() {
	a.refresher.Stop()
	a.hub.Close()
	for _, c := range a.closers {
		if c.Closer == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
	a.closers = nil
}
