package vips

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"image-proxy/internal/engine"
	"image-proxy/internal/logging"
	"image-proxy/internal/mediatypes"
	"image-proxy/internal/metrics"

	govips "github.com/davidbyttow/govips/v2/vips"
)

// Name identifies the libvips engine
const Name = "vips"

var (
	initMu      sync.Mutex
	initialized bool
)

// Config controls libvips startup
type Config struct {
	// Concurrency is the size of libvips' internal worker pool
	Concurrency int
	// MaxCacheMem bounds the operation cache. Proxied images are rarely
	// repeated, so this stays small.
	MaxCacheMem int
	// MaxCacheSize bounds the number of cached operations
	MaxCacheSize int
}

// DefaultConfig returns a Config using concurrency workers
func DefaultConfig(concurrency int) Config {
	return Config{
		Concurrency:  concurrency,
		MaxCacheMem:  16 * 1024 * 1024,
		MaxCacheSize: 64,
	}
}

// Engine transcodes with libvips
type Engine struct{}

// New starts libvips (once per process) and returns the engine
func New(cfg Config) *Engine {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		startup(cfg)
		initialized = true
	}
	return &Engine{}
}

// Shutdown releases libvips. No engine may be used afterwards.
func Shutdown() {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		govips.Shutdown()
		initialized = false
		logging.Info("libvips shutdown complete")
	}
}

func startup(cfg Config) {
	level, handler := logSettings(logging.GetLevel())
	// Must precede Startup so its own messages respect LOG_LEVEL
	govips.LoggingSettings(handler, level)

	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.Concurrency,
		MaxCacheMem:      cfg.MaxCacheMem,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	logging.Info("libvips initialized (version: %s, concurrency: %d)", govips.Version, cfg.Concurrency)
}

// logSettings maps our level onto the libvips threshold and a handler that
// routes libvips messages into our logger
func logSettings(level logging.LogLevel) (govips.LogLevel, func(string, govips.LogLevel, string)) {
	forward := func(threshold govips.LogLevel) func(string, govips.LogLevel, string) {
		return func(domain string, l govips.LogLevel, msg string) {
			if l > threshold {
				return
			}
			switch l {
			case govips.LogLevelError, govips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case govips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}

	switch level {
	case logging.LevelDebug:
		return govips.LogLevelInfo, forward(govips.LogLevelDebug)
	case logging.LevelInfo:
		return govips.LogLevelWarning, forward(govips.LogLevelWarning)
	case logging.LevelWarn:
		return govips.LogLevelError, forward(govips.LogLevelError)
	default:
		return govips.LogLevelCritical, forward(govips.LogLevelCritical)
	}
}

// Name implements engine.Engine
func (e *Engine) Name() string {
	return Name
}

// Load implements engine.Engine. libvips decodes lazily, so this reads the
// source and its header but leaves the pixel work to Encode.
func (e *Engine) Load(ctx context.Context, r io.Reader) (engine.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := govips.NewImageFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrDecode, err)
	}

	meta := engine.Metadata{
		Width:  ref.Width(),
		Height: ref.Height(),
		Format: govips.ImageTypes[ref.Format()],
	}
	logging.Debug("vips: loaded %s %dx%d", meta.Format, meta.Width, meta.Height)

	return &image{ref: ref, meta: meta}, nil
}

// GetStats implements metrics.StatsProvider
func (e *Engine) GetStats() metrics.Stats {
	var s govips.MemoryStats
	govips.ReadVipsMemStats(&s)
	return metrics.Stats{
		MemoryBytes:     s.Mem,
		MemoryHighBytes: s.MemHigh,
		Allocations:     s.Allocs,
		OpenFiles:       s.Files,
	}
}

// MemoryInUse reports memory held by libvips outside the Go heap
func (e *Engine) MemoryInUse() int64 {
	var s govips.MemoryStats
	govips.ReadVipsMemStats(&s)
	return s.Mem
}

type image struct {
	mu   sync.Mutex
	ref  *govips.ImageRef
	meta engine.Metadata
}

func (i *image) Metadata() engine.Metadata {
	return i.meta
}

func (i *image) Encode(ctx context.Context, t engine.Transform) (*engine.Output, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ref == nil {
		return nil, engine.ErrClosed
	}

	if t.ResizeHeight > 0 && t.ResizeHeight < i.ref.Height() {
		scale := float64(t.ResizeHeight) / float64(i.ref.Height())
		if err := i.ref.Resize(scale, govips.KernelAuto); err != nil {
			return nil, fmt.Errorf("%w: resize: %w", engine.ErrEncode, err)
		}
	}

	if t.Grayscale {
		if err := i.ref.ToColorSpace(govips.InterpretationBW); err != nil {
			return nil, fmt.Errorf("%w: grayscale: %w", engine.ErrEncode, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		buf []byte
		err error
	)
	switch t.Format {
	case mediatypes.FormatJPEG:
		if i.ref.HasAlpha() {
			if err := i.ref.Flatten(&govips.Color{R: 255, G: 255, B: 255}); err != nil {
				return nil, fmt.Errorf("%w: flatten: %w", engine.ErrEncode, err)
			}
		}
		buf, _, err = i.ref.ExportJpeg(&govips.JpegExportParams{
			Quality:        t.Quality,
			StripMetadata:  true,
			OptimizeCoding: false,
		})
	default:
		buf, _, err = i.ref.ExportWebp(&govips.WebpExportParams{
			Quality:         t.Quality,
			StripMetadata:   true,
			ReductionEffort: 0,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEncode, err)
	}

	format := t.Format
	if format == "" {
		format = mediatypes.FormatWebP
	}

	return &engine.Output{
		Format: format,
		Size:   int64(len(buf)),
		Body:   bytes.NewReader(buf),
	}, nil
}

func (i *image) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ref != nil {
		i.ref.Close()
		i.ref = nil
	}
	return nil
}
