package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"image-proxy/internal/logging"
	"image-proxy/internal/memory"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Banner is the body served to clients that call the proxy without a url
// parameter. Bandwidth Hero clients probe for this exact string.
const Banner = "bandwidth-hero-proxy"

// Engine selection values for TRANSCODE_ENGINE
const (
	EngineAuto    = "auto"
	EngineVips    = "vips"
	EngineImaging = "imaging"
)

// Defaults
const (
	DefaultPort               = "8080"
	DefaultMetricsPort        = "9090"
	DefaultQuality            = 80
	DefaultMinCompressLength  = 1024
	DefaultTransparentFactor  = 100
	DefaultMaxImageHeight     = 16383
	DefaultOriginTimeout      = 30 * time.Second
	DefaultStreamChunkSize    = 64 * 1024
	DefaultStreamWriteTimeout = 30 * time.Second
	DefaultStreamIdleTimeout  = 60 * time.Second
	DefaultEnvFile            = ".env"
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
	LogHealthChecks bool

	// Request defaults and compression thresholds
	DefaultQuality               int
	MinCompressLength            int64
	MinTransparentCompressLength int64
	MaxImageHeight               int

	// Transform engine: auto, vips or imaging
	Engine string

	// Origin access
	OriginTimeout       time.Duration
	BlockPrivateOrigins bool
	UserAgent           string

	// Client streaming
	StreamChunkSize    int
	StreamWriteTimeout time.Duration
	StreamIdleTimeout  time.Duration
}

// LoadConfig loads an optional dotenv file and then reads configuration from
// environment variables. Invalid values fall back to defaults with a warning.
func LoadConfig() (*Config, error) {
	envFile := getEnv("ENV_FILE", DefaultEnvFile)
	envLoaded, err := loadEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if envLoaded {
		logging.Info("  Loaded environment file: %s", envFile)
	}

	minCompress := getEnvInt64("MIN_COMPRESS_LENGTH", DefaultMinCompressLength)
	config := &Config{
		Port:                         getEnv("PORT", DefaultPort),
		MetricsPort:                  getEnv("METRICS_PORT", DefaultMetricsPort),
		MetricsEnabled:               getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:              getEnvBool("LOG_HEALTH_CHECKS", true),
		DefaultQuality:               getEnvInt("DEFAULT_QUALITY", DefaultQuality),
		MinCompressLength:            minCompress,
		MinTransparentCompressLength: getEnvInt64("MIN_TRANSPARENT_COMPRESS_LENGTH", minCompress*DefaultTransparentFactor),
		MaxImageHeight:               getEnvInt("MAX_IMAGE_HEIGHT", DefaultMaxImageHeight),
		Engine:                       strings.ToLower(getEnv("TRANSCODE_ENGINE", EngineAuto)),
		OriginTimeout:                getEnvDuration("ORIGIN_TIMEOUT", DefaultOriginTimeout),
		BlockPrivateOrigins:          getEnvBool("BLOCK_PRIVATE_ORIGINS", true),
		UserAgent:                    os.Getenv("USER_AGENT"),
		StreamChunkSize:              getEnvInt("STREAM_CHUNK_SIZE", DefaultStreamChunkSize),
		StreamWriteTimeout:           getEnvDuration("STREAM_WRITE_TIMEOUT", DefaultStreamWriteTimeout),
		StreamIdleTimeout:            getEnvDuration("STREAM_IDLE_TIMEOUT", DefaultStreamIdleTimeout),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	config.log()
	return config, nil
}

// validate clamps soft settings and rejects the ones that cannot work
func (c *Config) validate() error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		logging.Warn("  DEFAULT_QUALITY %d out of range 1-100, using default: %d", c.DefaultQuality, DefaultQuality)
		c.DefaultQuality = DefaultQuality
	}
	if c.MinCompressLength < 0 {
		logging.Warn("  MIN_COMPRESS_LENGTH must not be negative, using default: %d", DefaultMinCompressLength)
		c.MinCompressLength = DefaultMinCompressLength
	}
	if c.MinTransparentCompressLength < 0 {
		c.MinTransparentCompressLength = c.MinCompressLength * DefaultTransparentFactor
	}
	if c.MaxImageHeight < 1 {
		logging.Warn("  MAX_IMAGE_HEIGHT must be positive, using default: %d", DefaultMaxImageHeight)
		c.MaxImageHeight = DefaultMaxImageHeight
	}
	if c.StreamChunkSize < 1024 {
		logging.Warn("  STREAM_CHUNK_SIZE below 1KiB, using default: %d", DefaultStreamChunkSize)
		c.StreamChunkSize = DefaultStreamChunkSize
	}

	switch c.Engine {
	case EngineAuto, EngineVips, EngineImaging:
	default:
		return fmt.Errorf("unknown TRANSCODE_ENGINE %q (want %s, %s or %s)", c.Engine, EngineAuto, EngineVips, EngineImaging)
	}

	if c.Port == c.MetricsPort && c.MetricsEnabled {
		return fmt.Errorf("PORT and METRICS_PORT must differ (both %s)", c.Port)
	}
	return nil
}

func (c *Config) log() {
	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = "(rotating desktop browsers)"
	}

	logging.Info("  PORT:                            %s", c.Port)
	logging.Info("  METRICS_PORT:                    %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:                 %v", c.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:               %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                       %s", logging.GetLevel())
	logging.Info("  DEFAULT_QUALITY:                 %d", c.DefaultQuality)
	logging.Info("  MIN_COMPRESS_LENGTH:             %s", memory.FormatBytes(c.MinCompressLength))
	logging.Info("  MIN_TRANSPARENT_COMPRESS_LENGTH: %s", memory.FormatBytes(c.MinTransparentCompressLength))
	logging.Info("  MAX_IMAGE_HEIGHT:                %d", c.MaxImageHeight)
	logging.Info("  TRANSCODE_ENGINE:                %s", c.Engine)
	logging.Info("  ORIGIN_TIMEOUT:                  %v", c.OriginTimeout)
	logging.Info("  BLOCK_PRIVATE_ORIGINS:           %v", c.BlockPrivateOrigins)
	logging.Info("  USER_AGENT:                      %s", userAgent)
	logging.Info("  STREAM_CHUNK_SIZE:               %s", memory.FormatBytes(int64(c.StreamChunkSize)))
	logging.Info("  STREAM_WRITE_TIMEOUT:            %v", c.StreamWriteTimeout)
	logging.Info("  STREAM_IDLE_TIMEOUT:             %v", c.StreamIdleTimeout)

	if !c.BlockPrivateOrigins {
		logging.Warn("  Private origin blocking is OFF; the proxy can reach internal addresses")
	}
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("loading %s: %w", path, err)
	}
	return true, nil
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	switch result.Source {
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT:      %s (from environment)", memory.FormatBytes(result.GoMemLimit))
	case "MEMORY_LIMIT":
		logging.Info("  Container limit: %s", memory.FormatBytes(result.ContainerLimit))
		logging.Info("  GOMEMLIMIT:      %s (%.0f%%)", memory.FormatBytes(result.GoMemLimit), result.Ratio*100)
	default:
		logging.Info("  GOMEMLIMIT:      not configured (set MEMORY_LIMIT or GOMEMLIMIT)")
		logging.Info("  Memory-pressure bypass is inactive")
	}
}

// LogEngineInit logs the selected transform engine
func LogEngineInit(name string, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSFORM ENGINE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Engine:          %s", name)
	logging.Info("  Workers:         %d", workers)
	if name == EngineImaging {
		logging.Info("  WebP requests are answered with JPEG (no pure-Go WebP encoder)")
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
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			logging.Debug("    %-6s %-14s %s", route.Method, route.Path, route.Name)
		}
		logging.Debug("")
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
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
	logging.Info("    Proxy:         http://0.0.0.0:%s/?url=...", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
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
	// The ASCII art only makes sense on an interactive terminal
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(`
------------------------------------------------------------
  _
 (_)_ __ ___   __ _  __ _  ___       _ __  _ __ _____  ___   _
 | | '_ ' _ \ / _' |/ _' |/ _ \_____| '_ \| '__/ _ \ \/ / | | |
 | | | | | | | (_| | (_| |  __/_____| |_) | | | (_) >  <| |_| |
 |_|_| |_| |_|\__,_|\__, |\___|     | .__/|_|  \___/_/\_\\__, |
                    |___/          |_|                  |___/
------------------------------------------------------------`)
	}
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
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
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
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
