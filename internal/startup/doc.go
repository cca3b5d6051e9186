// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] first loads an optional dotenv file (ENV_FILE, default .env;
// variables already in the environment win) and then reads:
//
//   - PORT: proxy listen port (default: 8080)
//   - METRICS_PORT: Prometheus metrics port (default: 9090)
//   - METRICS_ENABLED: serve metrics (default: true)
//   - LOG_LEVEL / DEBUG: logging level (default: info)
//   - LOG_HEALTH_CHECKS: log health check requests (default: true)
//   - DEFAULT_QUALITY: encode quality when the client sends none (default: 80)
//   - MIN_COMPRESS_LENGTH: smallest origin body worth transcoding (default: 1024)
//   - MIN_TRANSPARENT_COMPRESS_LENGTH: same, for PNG/GIF to JPEG (default: 100x MIN_COMPRESS_LENGTH)
//   - MAX_IMAGE_HEIGHT: taller images are scaled down (default: 16383)
//   - TRANSCODE_ENGINE: auto, vips or imaging (default: auto)
//   - TRANSCODE_WORKERS: libvips thread count (default: GOMAXPROCS)
//   - ORIGIN_TIMEOUT: connect plus response header timeout (default: 30s)
//   - BLOCK_PRIVATE_ORIGINS: refuse private and reserved addresses (default: true)
//   - USER_AGENT: fixed origin User-Agent (default: rotating desktop browsers)
//   - STREAM_CHUNK_SIZE, STREAM_WRITE_TIMEOUT, STREAM_IDLE_TIMEOUT: client streaming
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// Invalid values are logged and replaced by their defaults. Only settings
// that cannot work (an unknown engine, identical ports) fail LoadConfig.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// The Log* functions print the sectioned startup and shutdown report:
// memory configuration, engine, routes, endpoints and shutdown steps.
package startup
