package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"clipshare/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	BaseURL         string
	UploadDir       string
	CacheDir        string
	DatabaseDir     string
	LogStaticFiles  bool
	LogHealthChecks bool

	// Credential gate. Either may be empty; both empty disables the gate.
	StaticAPIToken     string
	StaticAPITokenHash string

	// Video limits
	MaxUploadBytes     int64
	MinDurationSeconds float64
	MaxDurationSeconds float64
	TranscodeTimeout   time.Duration
	MergeLetterbox     bool
	ShareMaxExpiry     time.Duration

	// Derived paths
	DatabasePath string
	TempDir      string
}

// AuthEnabled reports whether any static credential is configured.
func (c *Config) AuthEnabled() bool {
	return c.StaticAPIToken != "" || c.StaticAPITokenHash != ""
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is read first if present; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	envFileLoaded := godotenv.Load() == nil

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if envFileLoaded {
		logging.Info("  Loaded .env file")
	}

	port := getEnv("PORT", "3000")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/")
	uploadDir := getEnv("UPLOAD_DIR", "./uploads")
	cacheDir := getEnv("CACHE_DIR", "./cache")
	databaseDir := getEnv("DATABASE_DIR", "./data")
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	config := &Config{
		Port:               port,
		MetricsPort:        metricsPort,
		MetricsEnabled:     metricsEnabled,
		BaseURL:            baseURL,
		LogStaticFiles:     logStaticFiles,
		LogHealthChecks:    logHealthChecks,
		StaticAPIToken:     os.Getenv("STATIC_API_TOKEN"),
		StaticAPITokenHash: os.Getenv("STATIC_API_TOKEN_HASH"),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 25*1024*1024),
		MinDurationSeconds: getEnvFloat("MIN_DURATION_SECONDS", 5),
		MaxDurationSeconds: getEnvFloat("MAX_DURATION_SECONDS", 25),
		TranscodeTimeout:   getEnvDuration("TRANSCODE_TIMEOUT", 2*time.Minute),
		MergeLetterbox:     getEnvBool("MERGE_LETTERBOX", false),
		ShareMaxExpiry:     time.Duration(getEnvInt64("SHARE_MAX_EXPIRY_MINUTES", 7*24*60)) * time.Minute,
	}

	logging.Info("  PORT:                     %s", config.Port)
	logging.Info("  METRICS_PORT:             %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:          %v", config.MetricsEnabled)
	logging.Info("  BASE_URL:                 %s", config.BaseURL)
	logging.Info("  UPLOAD_DIR:               %s", uploadDir)
	logging.Info("  CACHE_DIR:                %s", cacheDir)
	logging.Info("  DATABASE_DIR:             %s", databaseDir)
	logging.Info("  MAX_UPLOAD_BYTES:         %d", config.MaxUploadBytes)
	logging.Info("  MIN_DURATION_SECONDS:     %g", config.MinDurationSeconds)
	logging.Info("  MAX_DURATION_SECONDS:     %g", config.MaxDurationSeconds)
	logging.Info("  TRANSCODE_TIMEOUT:        %v", config.TranscodeTimeout)
	logging.Info("  MERGE_LETTERBOX:          %v", config.MergeLetterbox)
	logging.Info("  SHARE_MAX_EXPIRY_MINUTES: %d", int64(config.ShareMaxExpiry/time.Minute))
	logging.Info("  LOG_STATIC_FILES:         %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:        %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                %s", logging.GetLevel())

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	if config.UploadDir, err = resolveDir(uploadDir, "upload"); err != nil {
		return nil, err
	}
	if config.CacheDir, err = resolveDir(cacheDir, "cache"); err != nil {
		return nil, err
	}
	if config.DatabaseDir, err = resolveDir(databaseDir, "database"); err != nil {
		return nil, err
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, "clipshare.db")
	config.TempDir = filepath.Join(config.CacheDir, "tmp")

	if err := ensureDirectory(config.TempDir, "temp"); err != nil {
		return nil, fmt.Errorf("temp directory error: %w", err)
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    API auth:    %s", enabledString(config.AuthEnabled()))
	logging.Info("    Letterbox:   %s", enabledString(config.MergeLetterbox))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	if !config.AuthEnabled() {
		logging.Warn("  STATIC_API_TOKEN is not set; write endpoints are unauthenticated")
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MinDurationSeconds < 0 || c.MaxDurationSeconds <= c.MinDurationSeconds {
		return fmt.Errorf("duration bounds must satisfy 0 <= MIN_DURATION_SECONDS < MAX_DURATION_SECONDS")
	}
	if c.TranscodeTimeout <= 0 {
		return fmt.Errorf("TRANSCODE_TIMEOUT must be positive")
	}
	if c.ShareMaxExpiry <= 0 {
		return fmt.Errorf("SHARE_MAX_EXPIRY_MINUTES must be positive")
	}
	return nil
}

// resolveDir makes path absolute, creates it, and checks it is writable.
func resolveDir(path, name string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s directory path: %w", name, err)
	}
	logging.Info("  %s directory (absolute): %s", capitalize(name), abs)

	if err := ensureDirectory(abs, name); err != nil {
		return "", fmt.Errorf("%s directory error: %w", name, err)
	}

	logging.Debug("  Testing %s directory write access...", name)
	if err := testWriteAccess(abs); err != nil {
		return "", fmt.Errorf("%s directory is not writable: %w", name, err)
	}
	logging.Info("  [OK] %s directory is writable", capitalize(name))
	return abs, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogTranscoderInit logs transcoder initialization and checks FFmpeg
func LogTranscoderInit(timeout time.Duration, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Job timeout:     %v", timeout)
	logging.Info("  Merge workers:   %d", workers)

	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if err := checkBinary(bin); err != nil {
			logging.Warn("  %s check failed: %v", bin, err)
			logging.Warn("  Uploads and edits will fail until %s is installed", bin)
		} else {
			logging.Info("  [OK] %s is available", bin)
		}
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	first, _, _ := strings.Cut(path, "/")
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	BaseURL         string
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Public links:    %s", config.BaseURL)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
       ___ _ _                _
      / __| (_)_ __  ___| |_  __ _ _ _ ___
     | (__| | | '_ \(_-<| ' \/ _' | '_/ -_)
      \___|_|_| .__//__/|_||_\__,_|_| \___|
              |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkBinary(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(first))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number value for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
