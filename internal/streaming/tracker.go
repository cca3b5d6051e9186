package streaming

import (
	"net/http"
	"sync/atomic"
)

// Tracker records whether anything has been committed to the client. Once
// Started reports true the status line is gone and a failure can only abort
// the connection.
type Tracker struct {
	http.ResponseWriter
	started atomic.Bool
	status  atomic.Int32
	written atomic.Int64
}

// NewTracker wraps w
func NewTracker(w http.ResponseWriter) *Tracker {
	return &Tracker{ResponseWriter: w}
}

// WriteHeader implements http.ResponseWriter
func (t *Tracker) WriteHeader(code int) {
	if t.started.CompareAndSwap(false, true) {
		t.status.Store(int32(code))
	}
	t.ResponseWriter.WriteHeader(code)
}

// Write implements http.ResponseWriter
func (t *Tracker) Write(p []byte) (int, error) {
	if t.started.CompareAndSwap(false, true) {
		t.status.Store(http.StatusOK)
	}
	n, err := t.ResponseWriter.Write(p)
	t.written.Add(int64(n))
	return n, err
}

// Flush implements http.Flusher when the wrapped writer does
func (t *Tracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		if t.started.CompareAndSwap(false, true) {
			t.status.Store(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (t *Tracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

// Started reports whether the status line has been sent
func (t *Tracker) Started() bool {
	return t.started.Load()
}

// Status returns the committed status code, or 0 before Started
func (t *Tracker) Status() int {
	return int(t.status.Load())
}

// Written returns the number of body bytes accepted by the client connection
func (t *Tracker) Written() int64 {
	return t.written.Load()
}
