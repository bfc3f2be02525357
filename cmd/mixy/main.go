package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/mixy/pkg/config"
	"github.com/platinummonkey/mixy/pkg/launch"
	"github.com/platinummonkey/mixy/pkg/observability"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, dropped, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mixy: %v\n", err)
		return 1
	}

	logger, closer, err := observability.NewLogger(observability.LogConfig{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mixy: %v\n", err)
		return 1
	}
	defer closer.Close()

	runID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run_id": runID, "version": version})
	for _, arg := range dropped {
		log.Debugf("Ignoring unrecognized option %s", arg)
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(log, 10*time.Second)
	defer shutdown.Shutdown()

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Insecure:       cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
	} else if tp != nil {
		shutdown.Register("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp, log)
		})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	health := observability.NewHealthChecker(runID)

	sideCtx, cancelSide := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(sideCtx)
	shutdown.Register("side services", func(context.Context) error {
		cancelSide()
		return g.Wait()
	})

	if cfg.MetricsAddr != "" {
		srv := observability.NewServer(cfg.MetricsAddr, registry, health, log)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if cfg.Watch {
		watcher, err := launch.NewWatcher(cfg.MixinsDir, log)
		if err != nil {
			log.WithError(err).Warn("Mixins watcher disabled")
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	coord := launch.New(log, launch.WithMetrics(metrics), launch.WithHealth(health))
	shutdown.Register("coordinator", func(context.Context) error {
		return coord.Close()
	})

	if err := coord.Run(ctx, cfg); err != nil {
		log.WithError(err).Error("Launch failed")
		return 1
	}

	log.Info("Launch complete")
	return 0
}
