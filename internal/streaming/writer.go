package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"image-proxy/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write exceeded WriteTimeout or the
	// stream sat idle for longer than IdleTimeout.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed before the write.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config configures the timeout writer behavior
type Config struct {
	// WriteTimeout bounds a single chunk write to the client
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes (0 = disabled)
	IdleTimeout time.Duration
	// ChunkSize is the largest slice handed to the client at once; the
	// response is flushed after every chunk
	ChunkSize int
}

// DefaultConfig returns the defaults used when the environment does not override them
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter with per-chunk write deadlines
// and idle detection. Cancelling its context (idle timeout, Close) is visible
// to callers through Context, so the source feeding the writer can be tied
// to the same lifetime.
type TimeoutWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	parent       context.Context
	ctx          context.Context
	cancel       context.CancelFunc
	config       Config
	startTime    time.Time
	lastWrite    time.Time
	bytesWritten int64
	mu           sync.Mutex
	closed       bool
	idleExpired  bool
}

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)

	now := time.Now()
	tw := &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		parent:    ctx,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: now,
		lastWrite: now,
	}

	go tw.idleChecker()

	return tw
}

// Context is cancelled when the writer gives up on the client.
func (tw *TimeoutWriter) Context() context.Context {
	return tw.ctx
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	total := 0
	for len(p) > 0 {
		if err := tw.ctx.Err(); err != nil {
			return total, tw.contextError()
		}

		chunk := p
		if tw.config.ChunkSize > 0 && len(chunk) > tw.config.ChunkSize {
			chunk = chunk[:tw.config.ChunkSize]
		}

		n, err := tw.writeChunk(chunk)
		total += n
		if err != nil {
			return total, err
		}
		p = p[n:]
	}

	return total, nil
}

// writeChunk writes one chunk under a write deadline and flushes it
func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.config.WriteTimeout > 0 {
		// Recorders and some wrappers cannot carry deadlines; the idle
		// checker still bounds those.
		_ = tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
	}

	n, err := tw.w.Write(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			tw.cancel()
			return n, ErrWriteTimeout
		}
		if tw.parent.Err() != nil {
			return n, ErrClientGone
		}
		return n, err
	}

	if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}

	tw.mu.Lock()
	tw.lastWrite = time.Now()
	tw.bytesWritten += int64(n)
	tw.mu.Unlock()

	return n, nil
}

// idleChecker monitors for idle connections
func (tw *TimeoutWriter) idleChecker() {
	if tw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			expired := idle > tw.config.IdleTimeout
			if expired {
				tw.idleExpired = true
			}
			tw.mu.Unlock()

			if closed {
				return
			}

			if expired {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				tw.cancel()
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}

// contextError maps the writer's cancellation cause onto a sentinel
func (tw *TimeoutWriter) contextError() error {
	if tw.parent.Err() != nil {
		return ErrClientGone
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.idleExpired {
		return ErrWriteTimeout
	}
	return ErrStreamCanceled
}

// Close marks the writer as closed
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}

	tw.closed = true
	tw.cancel()

	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// Stream copies r to the response with timeout protection and returns the
// number of bytes delivered. A read error from r is returned as-is; write
// failures are reported with the sentinels above.
func Stream(ctx context.Context, w http.ResponseWriter, r io.Reader, config Config) (int64, error) {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	n, err := Copy(tw, r, config.ChunkSize)

	bytesWritten, duration := tw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	if err == nil && ctx.Err() != nil {
		err = ErrClientGone
	}
	return n, err
}
