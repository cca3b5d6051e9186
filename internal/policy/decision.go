package policy

import (
	"image-proxy/internal/mediatypes"
)

// DefaultMinCompressLength is the smallest origin body worth re-encoding to WebP.
const DefaultMinCompressLength = 1024

// TransparentMultiplier scales the base threshold for PNG/GIF origins forced to JPEG.
const TransparentMultiplier = 100

// Verdict reasons, also used as metric labels.
const (
	ReasonCompress         = "compress"
	ReasonNotImage         = "not-image"
	ReasonEmpty            = "empty-or-unknown-length"
	ReasonRange            = "range-request"
	ReasonSmallTransparent = "small-transparent"
	ReasonBelowThreshold   = "below-threshold"
	ReasonMemoryPressure   = "memory-pressure"
)

// Reasons lists every verdict reason.
var Reasons = []string{
	ReasonCompress,
	ReasonNotImage,
	ReasonEmpty,
	ReasonRange,
	ReasonSmallTransparent,
	ReasonBelowThreshold,
	ReasonMemoryPressure,
}

// Thresholds are the size limits of the decision. They are fixed at startup.
type Thresholds struct {
	// Min is the minimum origin length for WebP output
	Min int64
	// TransparentMin is the minimum PNG/GIF origin length for JPEG output
	TransparentMin int64
}

// DefaultThresholds returns the reference thresholds (1 KiB and 100 KiB).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Min:            DefaultMinCompressLength,
		TransparentMin: DefaultMinCompressLength * TransparentMultiplier,
	}
}

// Input carries everything the decision looks at.
type Input struct {
	ContentType   string
	ContentLength int64
	HasRange      bool
	Format        mediatypes.Format
}

// Verdict is the outcome of Decide. ContentType and ContentLength echo the
// inputs for logging.
type Verdict struct {
	Compress      bool
	Reason        string
	ContentType   string
	ContentLength int64
}

// Decide reports whether an origin response is worth transcoding.
func Decide(in Input, th Thresholds) Verdict {
	v := Verdict{
		ContentType:   in.ContentType,
		ContentLength: in.ContentLength,
	}

	switch {
	case !mediatypes.IsImage(in.ContentType):
		v.Reason = ReasonNotImage
	case in.ContentLength <= 0:
		v.Reason = ReasonEmpty
	case in.HasRange:
		// Byte ranges of the origin cannot be mapped onto re-encoded output.
		v.Reason = ReasonRange
	case in.Format == mediatypes.FormatJPEG &&
		mediatypes.IsTransparentCapable(in.ContentType) &&
		in.ContentLength < th.TransparentMin:
		v.Reason = ReasonSmallTransparent
	case in.Format == mediatypes.FormatWebP && in.ContentLength < th.Min:
		v.Reason = ReasonBelowThreshold
	default:
		v.Compress = true
		v.Reason = ReasonCompress
	}

	return v
}

// Bypass returns a non-compressing verdict for the given reason, keeping the
// echoed inputs.
func (v Verdict) Bypass(reason string) Verdict {
	v.Compress = false
	v.Reason = reason
	return v
}
