// Package main provides the entry point for the image proxy.
//
// The proxy is a drop-in Bandwidth Hero compression server: browsers with the
// Bandwidth Hero extension send image requests to GET /?url=<image>, and the
// proxy answers with a smaller WebP or JPEG, or with the original bytes when
// re-encoding is not worth it.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from GOMEMLIMIT or MEMORY_LIMIT
//  2. Configuration Loading: optional .env file, then environment variables
//  3. Engine Initialization: libvips (default) or the pure-Go imaging engine
//  4. Background Services: memory monitor and libvips stats collector
//  5. HTTP Servers: proxy server and, optionally, metrics server
//  6. Graceful Shutdown: SIGINT/SIGTERM drain both servers, then release libvips
//
// # HTTP Servers
//
//  1. Proxy Server (default port 8080):
//     - GET / proxy entry point
//     - /health, /healthz, /livez, /readyz, /version
//     - /favicon.ico (204)
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// Every proxy response carries an X-Request-ID and is logged in W3C extended
// format. Textual responses are compressed with brotli or gzip; images never
// are.
//
// # Memory Management
//
// When the memory monitor sees usage above its critical mark, new requests
// skip transcoding and receive the original bytes until usage falls below
// the high mark. /readyz reports 503 during that time.
//
// # Build Requirements
//
// The vips engine needs CGO and libvips:
//
//	go build -o image-proxy ./cmd/image-proxy
//
// Configuration variables are documented in package startup.
package main
