package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipshare_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipshare_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipshare_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Transcoder metrics
var (
	TranscoderOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_transcoder_operations_total",
			Help: "Total number of transcoder operations",
		},
		[]string{"operation", "status"},
	)

	TranscoderOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipshare_transcoder_operation_duration_seconds",
			Help:    "Transcoder operation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	TranscoderProcessesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipshare_transcoder_processes_active",
			Help: "Number of ffmpeg/ffprobe processes currently running",
		},
	)
)

// Pipeline metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_uploads_total",
			Help: "Total number of uploads by result",
		},
		[]string{"result"},
	)

	TrimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_trims_total",
			Help: "Total number of trim requests by status",
		},
		[]string{"status"},
	)

	MergeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_merge_jobs_total",
			Help: "Total number of merge jobs by terminal state",
		},
		[]string{"state"},
	)

	MergeJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipshare_merge_job_duration_seconds",
			Help:    "Merge job duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	MergeIntermediatesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipshare_merge_intermediates_active",
			Help: "Number of merge intermediate artifacts currently on disk",
		},
	)
)

// Share metrics
var (
	ShareTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipshare_share_tokens_issued_total",
			Help: "Total number of share tokens issued",
		},
	)

	ShareValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_share_validations_total",
			Help: "Total number of share token validations by result",
		},
		[]string{"result"},
	)

	RangeResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_range_responses_total",
			Help: "Total number of streamed share responses by status code",
		},
		[]string{"status"},
	)
)

// Poster metrics
var (
	PosterGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_poster_generations_total",
			Help: "Total number of poster generations by status",
		},
		[]string{"status"},
	)

	PosterCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipshare_poster_cache_hits_total",
			Help: "Total number of poster cache hits",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipshare_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemCleanupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipshare_filesystem_cleanup_errors_total",
			Help: "Total number of failed temporary artifact removals",
		},
	)
)

// Library metrics
var (
	AssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipshare_assets_total",
			Help: "Total number of assets by origin",
		},
		[]string{"origin"},
	)

	ActiveShares = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipshare_active_shares",
			Help: "Number of assets with an unexpired share token",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipshare_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
