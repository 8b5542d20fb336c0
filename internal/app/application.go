// Package app wires the harvester's components together and runs the
// service: the HTTP server for delta webhooks and the periodic scheduler for
// the incremental harvest.
package app

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/harvest"
	"github.com/lblod/verenigingen-harvester/internal/ledger"
	"github.com/lblod/verenigingen-harvester/internal/metrics"
	"github.com/lblod/verenigingen-harvester/internal/registry"
	"github.com/lblod/verenigingen-harvester/internal/scheduler"
	"github.com/lblod/verenigingen-harvester/internal/sparql"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
	"github.com/lblod/verenigingen-harvester/internal/transform"
	"github.com/lblod/verenigingen-harvester/internal/web"
)

// Module assembles all service components for Fx.
var Module = fx.Options(
	fx.Provide(
		sparql.NewClient,
		fx.Annotate(ledger.New, fx.As(new(harvest.Ledger))),
		registry.NewTokenProvider,
		fx.Annotate(registry.NewClient, fx.As(new(harvest.Registry))),
		fx.Annotate(harvest.NewStore, fx.As(new(harvest.FileStore))),
		transform.New,
		fx.Annotate(metrics.NewRecorder, fx.As(fx.Self()), fx.As(new(harvest.RunRecorder))),
		fx.Annotate(
			func(r *metrics.Recorder) http.Handler { return r.Handler() },
			fx.ResultTags(`name:"metricsHandler"`),
		),
		fx.Annotate(harvest.New,
			fx.As(new(web.TaskRunner)),
			fx.As(new(scheduler.IncrementalRunner)),
		),
		fx.Annotate(
			web.NewServer,
			fx.ParamTags("", "", `name:"metricsHandler"`),
		),
		scheduler.New,
	),
	fx.Invoke(registerLifecycle),
)

// RunApplication loads the configuration and runs the Fx container until the
// context is cancelled or the process receives a shutdown signal.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) {
	cfg, err := config.Load(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Infof("Log level set to: %s", cfg.Harvester.System.Logging.Level)

	fxApp := fx.New(
		fx.Supply(cfg),
		Module,
	)

	go func() {
		<-appCtx.Done()
		logger.Warnf("Application context cancelled. Shutting down...")
		_ = fxApp.Stop(context.Background())
	}()

	fxApp.Run()

	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
}

// registerLifecycle starts the HTTP server and the incremental scheduler on
// application start and stops them gracefully on shutdown.
func registerLifecycle(lc fx.Lifecycle, server *web.Server, sched *scheduler.Scheduler, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Infof("Starting HTTP server on port %d", cfg.Harvester.Web.Port)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("HTTP server stopped unexpectedly: %v", err)
				}
			}()
			sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			sched.Stop()
			return server.Shutdown(ctx)
		},
	})
}
