package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/tax-tracker/internal/api/handlers"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/bootstrap"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/config"
	infrabq "github.com/dvloznov/tax-tracker/internal/infra/bigquery"
	"github.com/dvloznov/tax-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/tax-tracker/internal/logger"
	"github.com/dvloznov/tax-tracker/internal/metrics"
	"github.com/dvloznov/tax-tracker/internal/pipeline"
	"github.com/rs/zerolog"
)

// Finished jobs stay queryable for jobRetention.
const (
	jobRetention     = 24 * time.Hour
	jobPruneInterval = time.Hour
)

func main() {
	configPath := flag.String("config", os.Getenv("TAXTRACKER_CONFIG"), "path to a TOML config file (or set TAXTRACKER_CONFIG env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Setup(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("API server failed")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx := logger.WithContext(context.Background(), log)

	svc, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.App.Subscribe(metrics.Observe)

	if svc.Syncer != nil && cfg.BigQuery.MirrorInterval.Duration > 0 {
		mirror := infrabq.NewMirror(svc.Syncer, func() infrabq.SyncInput {
			return infrabq.SyncInput{
				Transactions: svc.App.Transactions(app.TransactionFilter{}),
				Calculation:  svc.App.Calculation(),
				Utilization:  svc.App.Utilization(),
			}
		}, cfg.BigQuery.MirrorInterval.Duration, log)
		svc.App.Subscribe(func(_ context.Context, ev app.Event) {
			if ev.Kind.ChangesTax() {
				mirror.Notify()
			}
		})

		mirrorCtx, stopMirror := context.WithCancel(ctx)
		mirrorDone := make(chan struct{})
		go func() {
			defer close(mirrorDone)
			mirror.Run(mirrorCtx)
		}()
		defer func() {
			stopMirror()
			<-mirrorDone
		}()
		log.Info().Dur("interval", cfg.BigQuery.MirrorInterval.Duration).Msg("Warehouse mirror started")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		Workers: cfg.Worker.Concurrency,
		Logger:  log,
		Observe: metrics.ObserveJob,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	pipelineDeps := pipeline.Deps{
		Source:    svc.Archive,
		Extractor: svc.Extractor,
		Workflow:  svc.App,
		Clock:     clock.RealClock{},
	}
	if svc.Warehouse != nil {
		pipelineDeps.Recorder = svc.Warehouse
	}
	jobHandler := pipeline.Handler(pipelineDeps)
	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		return fmt.Errorf("start job worker: %w", err)
	}
	log.Info().Int("workers", cfg.Worker.Concurrency).Msg("Job worker started")

	go func() {
		ticker := time.NewTicker(jobPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case now := <-ticker.C:
				if n := jobStore.Prune(now.Add(-jobRetention)); n > 0 {
					log.Debug().Int("pruned", n).Msg("Pruned finished jobs")
				}
			}
		}
	}()

	routerDeps := handlers.Deps{
		App:            svc.App,
		Archive:        svc.Archive,
		Publisher:      jobQueue,
		JobStore:       jobStore,
		Clock:          clock.RealClock{},
		Logger:         log,
		MaxRetries:     cfg.Worker.MaxRetries,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
	}
	// Typed nil pointers must not reach the interface fields.
	if svc.Notion != nil {
		routerDeps.Notion = svc.Notion
	}
	if svc.Syncer != nil {
		routerDeps.Warehouse = svc.Syncer
	}
	router := handlers.NewRouter(routerDeps)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
	return nil
}
