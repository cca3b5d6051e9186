package mediatypes

import (
	"strings"
)

// Format is an output encoding produced by the proxy.
type Format string

const (
	// FormatWebP is the default output format.
	FormatWebP Format = "webp"
	// FormatJPEG is selected by the jpeg query parameter.
	FormatJPEG Format = "jpeg"
)

// ImagePrefix is the media-type prefix every transcodable origin must carry.
const ImagePrefix = "image"

// OctetStream is the fallback MIME type for unknown content.
const OctetStream = "application/octet-stream"

// MimeTypes maps output formats to their MIME types.
var MimeTypes = map[Format]string{
	FormatWebP: "image/webp",
	FormatJPEG: "image/jpeg",
}

// TransparentSubtypes are origin subtypes that usually carry an alpha
// channel or a palette, and lose it when re-encoded to JPEG.
var TransparentSubtypes = []string{"png", "gif"}

// MimeType returns the MIME type for the format.
// Returns "application/octet-stream" if the format is not recognized.
func (f Format) MimeType() string {
	if mime, ok := MimeTypes[f]; ok {
		return mime
	}
	return OctetStream
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// BaseType strips parameters from a Content-Type header value and lowercases it.
func BaseType(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// IsImage returns true if the Content-Type value starts with the image prefix.
func IsImage(contentType string) bool {
	return strings.HasPrefix(BaseType(contentType), ImagePrefix)
}

// IsTransparentCapable returns true for origin types that commonly carry
// transparency (PNG and GIF).
func IsTransparentCapable(contentType string) bool {
	base := BaseType(contentType)
	for _, subtype := range TransparentSubtypes {
		if strings.HasSuffix(base, subtype) {
			return true
		}
	}
	return false
}
