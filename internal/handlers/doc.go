// Package handlers provides the HTTP handlers of the image proxy.
//
// It includes handlers for:
//   - The proxy entry point (fetch, decide, transcode or bypass)
//   - Redirect-to-origin on failure
//   - Health, liveness, readiness and version
//   - Prometheus metrics exposition
package handlers
