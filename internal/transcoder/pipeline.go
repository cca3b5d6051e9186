package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"image-proxy/internal/engine"
	"image-proxy/internal/logging"
	"image-proxy/internal/mediatypes"
	"image-proxy/internal/metrics"
	"image-proxy/internal/streaming"
)

// DefaultMaxHeight is the tallest image the output formats accept
const DefaultMaxHeight = 16383

// Stage errors
var (
	// ErrMetadata indicates the engine could not read the source header.
	ErrMetadata = errors.New("reading image metadata")

	// ErrTransform indicates resizing, desaturating or encoding failed.
	ErrTransform = errors.New("transforming image")

	// ErrStream indicates the encoded image could not be delivered.
	ErrStream = errors.New("streaming image")
)

// Options are the per-request encode settings
type Options struct {
	Format    mediatypes.Format
	Grayscale bool
	Quality   int
}

// Info is delivered to the caller once the encoded size is known and
// before any byte is written
type Info struct {
	Format       mediatypes.Format
	Size         int64
	SourceFormat string
	Width        int
	Height       int
}

// Result summarises a completed pipeline run
type Result struct {
	Format   mediatypes.Format
	Size     int64
	Written  int64
	Duration time.Duration
}

// Config holds process-wide pipeline settings
type Config struct {
	MaxHeight int
	Stream    streaming.Config
}

// DefaultConfig returns the default pipeline settings
func DefaultConfig() Config {
	return Config{
		MaxHeight: DefaultMaxHeight,
		Stream:    streaming.DefaultConfig(),
	}
}

// Pipeline transcodes origin bodies with an engine. It holds no per-request
// state and is shared by all requests.
type Pipeline struct {
	engine engine.Engine
	config Config
}

// New creates a Pipeline
func New(e engine.Engine, config Config) *Pipeline {
	if config.MaxHeight <= 0 {
		config.MaxHeight = DefaultMaxHeight
	}
	return &Pipeline{engine: e, config: config}
}

// EngineName returns the name of the engine in use
func (p *Pipeline) EngineName() string {
	return p.engine.Name()
}

// Run transcodes src and streams the result to w. onInfo runs exactly once,
// before the first byte, and only if encoding succeeded. src is not closed.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, opts Options, onInfo func(Info), w http.ResponseWriter) (*Result, error) {
	r := &run{log: logging.FromContext(ctx), state: StateFetchingMetadata}
	start := time.Now()

	metrics.TranscodesInProgress.Inc()
	defer metrics.TranscodesInProgress.Dec()

	img, err := await(ctx, async(func() (engine.Image, error) {
		return p.engine.Load(ctx, src)
	}), closeImage)
	if err != nil {
		return nil, r.fail(fmt.Errorf("%w: %w", ErrMetadata, err))
	}
	defer func() {
		closeImage(img)
	}()

	meta := img.Metadata()
	r.log.Debug("source %s %dx%d", meta.Format, meta.Width, meta.Height)
	r.transition(StateTransforming)

	transform := engine.Transform{
		ResizeHeight: engine.TargetHeight(meta.Height, p.config.MaxHeight),
		Grayscale:    opts.Grayscale,
		Format:       opts.Format,
		Quality:      opts.Quality,
	}
	loaded := img
	out, err := await(ctx, async(func() (*engine.Output, error) {
		return loaded.Encode(ctx, transform)
	}), func(*engine.Output) {
		closeImage(loaded)
	})
	if err != nil {
		// Close waits for Encode, so an abandoned image is closed by the encode goroutine
		if errors.Is(err, errAbandoned) {
			img = nil
		}
		return nil, r.fail(fmt.Errorf("%w: %w", ErrTransform, err))
	}

	metrics.TranscodeDuration.WithLabelValues(out.Format.String()).Observe(time.Since(start).Seconds())
	if out.Format != opts.Format {
		metrics.FormatSubstitutions.WithLabelValues(opts.Format.String(), out.Format.String()).Inc()
		r.log.Debug("engine %s produced %s instead of %s", p.engine.Name(), out.Format, opts.Format)
	}

	if onInfo != nil {
		onInfo(Info{
			Format:       out.Format,
			Size:         out.Size,
			SourceFormat: meta.Format,
			Width:        meta.Width,
			Height:       meta.Height,
		})
	}
	r.transition(StateStreaming)

	written, err := streaming.Stream(ctx, w, out.Body, p.config.Stream)
	if err != nil {
		return nil, r.fail(fmt.Errorf("%w: %w", ErrStream, err))
	}
	r.transition(StateDone)

	return &Result{
		Format:   out.Format,
		Size:     out.Size,
		Written:  written,
		Duration: time.Since(start),
	}, nil
}

func closeImage(img engine.Image) {
	if img == nil {
		return
	}
	if err := img.Close(); err != nil {
		logging.Warn("Failed to close image: %v", err)
	}
}

// run tracks the state of one pipeline execution
type run struct {
	log   *logging.Logger
	state State
}

func (r *run) transition(to State) {
	if !canTransition(r.state, to) {
		r.log.Error("illegal pipeline transition %s -> %s", r.state, to)
		return
	}
	r.log.Debug("pipeline %s -> %s", r.state, to)
	metrics.TranscodeStateTransitions.WithLabelValues(r.state.String(), to.String()).Inc()
	r.state = to
}

func (r *run) fail(err error) error {
	r.transition(StateFailed)
	return err
}
