// Package server wires the sync server together: storage, services,
// metrics, tracing and the HTTP and gRPC endpoints, and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/config"
	"github.com/dmitrijs2005/nibblelog/internal/server/httpserver"
	"github.com/dmitrijs2005/nibblelog/internal/server/metrics"
	"github.com/dmitrijs2005/nibblelog/internal/server/services"
	"github.com/dmitrijs2005/nibblelog/internal/server/storage"
	"github.com/dmitrijs2005/nibblelog/internal/server/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/nibblelog/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       *storage.Store
	syncService *services.SyncService
	authService *services.AuthService
	metrics     *metrics.Metrics
	shutdownTr  tracing.ShutdownFunc
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if len(c.Users) == 0 {
		logger.Warn(ctx, "no users configured, every login will be rejected")
	}

	store, err := storage.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	shutdownTr, err := tracing.Init(ctx, "nibblelog", c.OTLPEndpoint)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	return &App{
		config:      c,
		logger:      logger,
		store:       store,
		syncService: services.NewSyncService(store, c.PullPageLimit, logger, m),
		authService: services.NewAuthService(c.Users, c.SecretKey, c.AccessTokenValidityDuration, logger),
		metrics:     m,
		shutdownTr:  shutdownTr,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "signal caught", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpserver.NewServer(app.config.EndpointAddrHTTP, app.syncService, app.authService,
		app.metrics, app.config.CORSOrigins, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store, app.config.HealthCheckInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the endpoints fails. The store is closed before Run returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.store.Driver)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.shutdownTr(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "tracer shutdown failed", "error", err)
	}

	app.logger.Info(shutdownCtx, "app stopped")
	return app.store.Close()
}
