// Package middleware provides HTTP middleware for the image proxy.
//
// It includes:
//   - Request ids (X-Request-ID) with a prefixed logger in the request context
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - Brotli and gzip compression of textual responses; images pass through
//
// Every wrapper implements Unwrap so http.ResponseController can set write
// deadlines and flush through the chain. Handlers that abort with
// http.ErrAbortHandler are still logged and counted.
package middleware
