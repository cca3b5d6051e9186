/*
Package streaming moves response bodies to clients without letting a slow or
vanished client pin server resources.

# Overview

Every body the proxy sends, transcoded or passed through, goes through
Stream. It copies the source in bounded chunks through a pooled buffer,
flushes after each chunk, and enforces two limits:

  - WriteTimeout: a per-chunk write deadline set through
    http.ResponseController.
  - IdleTimeout: the longest gap between successful writes. When it is
    exceeded the writer's context is cancelled and further writes fail
    with ErrWriteTimeout.

# Basic Usage

	n, err := streaming.Stream(r.Context(), w, body, streaming.DefaultConfig())
	if errors.Is(err, streaming.ErrClientGone) {
		// client hung up; not a server error
	}

# Commit Tracking

Tracker wraps an http.ResponseWriter and records whether a status line has
been sent. Handlers use it to choose between answering a failure with a
fresh response and aborting a response that is already underway:

	tw := streaming.NewTracker(w)
	...
	if tw.Started() {
		panic(http.ErrAbortHandler)
	}

# Error Handling

	var (
		ErrWriteTimeout   = errors.New("write timeout exceeded")
		ErrClientGone     = errors.New("client disconnected")
		ErrStreamCanceled = errors.New("stream canceled")
	)

Errors returned from the source reader pass through unchanged so callers
can tell an origin or encoder failure from a client failure.
*/
package streaming
