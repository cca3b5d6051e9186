package engine

import (
	"context"
	"errors"
	"io"

	"image-proxy/internal/mediatypes"
)

// Errors returned by engines.
var (
	// ErrDecode indicates the source could not be recognised as an image.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode indicates the transformed image could not be encoded.
	ErrEncode = errors.New("image encode failed")

	// ErrClosed indicates an operation on an image after Close.
	ErrClosed = errors.New("image closed")
)

// Engine turns a byte stream into an Image. Implementations must be safe for
// concurrent use by multiple requests.
type Engine interface {
	Name() string
	Load(ctx context.Context, r io.Reader) (Image, error)
}

// Image is a decoded source. It is owned by a single request and must be
// closed by it.
type Image interface {
	Metadata() Metadata
	Encode(ctx context.Context, t Transform) (*Output, error)
	Close() error
}

// Metadata describes the source image as decoded
type Metadata struct {
	Width  int
	Height int
	// Format is the decoder's name for the source ("png", "jpeg", ...)
	Format string
}

// Transform is what to do with a loaded image
type Transform struct {
	// ResizeHeight scales the image down to this height, keeping the aspect
	// ratio. 0 leaves the size unchanged. Never enlarges.
	ResizeHeight int
	Grayscale    bool
	Format       mediatypes.Format
	Quality      int
}

// Output is an encoded image. Format may differ from the requested one when
// the engine cannot produce it.
type Output struct {
	Format mediatypes.Format
	Size   int64
	Body   io.Reader
}

// TargetHeight returns the height to resize to so that the image fits under
// maxHeight, or 0 when no resize is needed.
func TargetHeight(height, maxHeight int) int {
	if maxHeight <= 0 || height <= maxHeight {
		return 0
	}
	return maxHeight
}
