package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipshare/internal/database"
	"clipshare/internal/filesystem"
	"clipshare/internal/handlers"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
	"clipshare/internal/middleware"
	"clipshare/internal/poster"
	"clipshare/internal/share"
	"clipshare/internal/startup"
	"clipshare/internal/transcoder"
	"clipshare/internal/videos"
	"clipshare/internal/workers"
)

// maxMergeWorkers caps parallel normalizations per merge.
const maxMergeWorkers = 8

// dbStatsAdapter feeds library statistics to the metrics collector.
type dbStatsAdapter struct {
	db statsSource
}

type statsSource interface {
	CalculateStats(ctx context.Context) (database.LibraryStats, error)
	UpdateDBMetrics()
}

// GetStats implements metrics.StatsProvider
func (a *dbStatsAdapter) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.db.UpdateDBMetrics()
	stats, err := a.db.CalculateStats(ctx)
	if err != nil {
		logging.Warn("Failed to collect library stats: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		AssetsByOrigin: stats.AssetsByOrigin,
		ActiveShares:   stats.ActiveShares,
	}
}

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	metrics.InitializeMetrics()

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	storage, err := filesystem.NewStorage(config.UploadDir, config.TempDir)
	if err != nil {
		startup.LogFatal("Failed to initialize storage: %v", err)
	}

	startup.LogTranscoderInit(config.TranscodeTimeout, workers.ForMixed(maxMergeWorkers))
	trans := transcoder.New(transcoder.Options{Timeout: config.TranscodeTimeout})

	svc := videos.NewService(db, trans, storage, videos.Config{
		BaseURL:        config.BaseURL,
		MaxUploadBytes: config.MaxUploadBytes,
		MinDuration:    config.MinDurationSeconds,
		MaxDuration:    config.MaxDurationSeconds,
		Letterbox:      config.MergeLetterbox,
		MaxParallel:    maxMergeWorkers,
	})
	shares := share.NewManager(db, config.BaseURL, share.WithMaxExpiry(config.ShareMaxExpiry))

	posters, err := poster.NewGenerator(trans, config.CacheDir)
	if err != nil {
		startup.LogFatal("Failed to initialize poster cache: %v", err)
	}

	h := handlers.New(db, svc, shares, posters, storage)
	router := handlers.NewRouter(h, storage.UploadDir())
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	authed := middleware.Auth(middleware.AuthConfig{
		Token:     config.StaticAPIToken,
		TokenHash: config.StaticAPITokenHash,
	})(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(authed)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and merges can run for the full transcode timeout.
		ReadTimeout:  config.TranscodeTimeout + time.Minute,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(&dbStatsAdapter{db: db}, time.Minute)
		collector.Start()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, collector, trans)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		BaseURL:         config.BaseURL,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, trans *transcoder.Transcoder) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Cleaning up transcoder")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
