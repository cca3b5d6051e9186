// Package logging provides a simple leveled logging interface for the
// image proxy.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (pipeline state transitions)
//   - INFO: General operational messages
//   - WARN: Warning conditions (origin and transcode failures)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true.
//
// Request handlers use a *Logger obtained from With, which prefixes every
// line with the request id so that the lines of one proxied image can be
// correlated:
//
//	log := logging.With(requestID)
//	log.Debug("state %s -> %s", from, to)
package logging
