package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder
	"io"
	"sync"

	"image-proxy/internal/logging"
	"image-proxy/internal/mediatypes"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ImagingName identifies the pure-Go engine
const ImagingName = "imaging"

// Imaging is a pure-Go engine built on disintegration/imaging. It has no
// WebP encoder, so WebP requests are answered with JPEG.
type Imaging struct{}

// NewImaging returns the pure-Go engine
func NewImaging() *Imaging {
	return &Imaging{}
}

// Name implements Engine
func (e *Imaging) Name() string {
	return ImagingName
}

// Load reads the image header for metadata and buffers the source for the
// full decode in Encode.
func (e *Imaging) Load(ctx context.Context, r io.Reader) (Image, error) {
	var buf bytes.Buffer
	br := bufio.NewReader(io.TeeReader(r, &buf))

	cfg, format, err := image.DecodeConfig(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// Header parsed; pull the rest of the source into memory.
	if _, err := io.Copy(&buf, contextReader{ctx: ctx, r: r}); err != nil {
		return nil, fmt.Errorf("%w: reading source: %w", ErrDecode, err)
	}

	logging.Debug("imaging: loaded %s %dx%d (%d bytes)", format, cfg.Width, cfg.Height, buf.Len())

	return &imagingImage{
		meta: Metadata{Width: cfg.Width, Height: cfg.Height, Format: format},
		src:  buf.Bytes(),
	}, nil
}

type imagingImage struct {
	meta   Metadata
	mu     sync.Mutex
	src    []byte
	closed bool
}

func (i *imagingImage) Metadata() Metadata {
	return i.meta
}

func (i *imagingImage) Encode(ctx context.Context, t Transform) (*Output, error) {
	i.mu.Lock()
	src, closed := i.src, i.closed
	i.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.ResizeHeight > 0 && t.ResizeHeight < img.Bounds().Dy() {
		img = imaging.Resize(img, 0, t.ResizeHeight, imaging.Linear)
	}
	if t.Grayscale {
		img = imaging.Grayscale(img)
	}

	// Transparent areas would turn black in JPEG.
	if !isOpaque(img) {
		bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), image.White)
		img = imaging.Overlay(bg, img, image.Point{}, 1.0)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return &Output{
		Format: mediatypes.FormatJPEG,
		Size:   int64(out.Len()),
		Body:   bytes.NewReader(out.Bytes()),
	}, nil
}

func (i *imagingImage) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.src = nil
	return nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// contextReader stops reading once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
