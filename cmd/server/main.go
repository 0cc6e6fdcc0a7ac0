package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/curvescope/internal/analysis"
	"github.com/aristath/curvescope/internal/config"
	"github.com/aristath/curvescope/internal/database"
	"github.com/aristath/curvescope/internal/events"
	"github.com/aristath/curvescope/internal/loader"
	"github.com/aristath/curvescope/internal/scheduler"
	"github.com/aristath/curvescope/internal/server"
	"github.com/aristath/curvescope/pkg/logger"
)

// runRetention is how long past analysis runs are kept before pruning
const runRetention = 90 * 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Curvescope")

	// Initialize the runs database. Everything in it can be recomputed
	// from the source files, so the cache profile applies.
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileCache,
		Name:    "runs",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize runs database")
	}
	defer db.Close()

	repo, err := analysis.NewRepository(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize runs repository")
	}

	bus := events.NewBus()

	// Pick the series source: a bucket when configured, local files otherwise
	var source loader.Source
	if cfg.S3 != nil {
		s3Source, err := loader.NewS3Source(context.Background(), loader.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 source")
		}
		source = s3Source
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Loading series from S3 bucket")
	} else {
		source = loader.NewFileSource(cfg.SourcesDir, log)
		log.Info().Str("dir", cfg.SourcesDir).Msg("Loading series from local files")
	}

	service := analysis.NewService(source, repo, bus, analysis.Config{
		Horizons:           cfg.Horizons,
		TradingDaysPerYear: cfg.TradingDaysPerYear,
		Labels:             cfg.Labels,
		SmoothingPeriod:    cfg.SmoothingPeriod,
	}, log)

	// Initialize scheduler and register background jobs
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshJob(service, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register refresh job")
	}
	maintenanceJob := scheduler.NewMaintenanceJob(repo, db, runRetention, log)
	if err := sched.AddJob("@daily", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Service: service,
		Repo:    repo,
		Bus:     bus,
		DB:      db,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Initial analysis so charts are available right away. Failure is not
	// fatal: a run can be triggered over the API once sources are fixed.
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Error().Err(err).Msg("Initial analysis run failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
