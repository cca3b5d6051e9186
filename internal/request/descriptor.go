package request

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"image-proxy/internal/mediatypes"
)

// DefaultQuality is the encode quality used when the request carries none.
const DefaultQuality = 80

// MaxQuality is the upper bound of the encode quality scale.
const MaxQuality = 100

// Query parameter names understood by Parse.
const (
	ParamURL       = "url"
	ParamJPEG      = "jpeg"
	ParamGrayscale = "bw"
	ParamLevel     = "l"
	ParamQuality   = "quality"
)

// ErrMissingURL is returned when the query carries no url parameter.
// Callers answer it with the banner, not with an error status.
var ErrMissingURL = errors.New("missing url parameter")

// Descriptor is the normalized, immutable description of one proxy request.
type Descriptor struct {
	URL       string
	Format    mediatypes.Format
	Grayscale bool
	Quality   int
}

// WithURL returns a copy of the descriptor pointing at target.
func (d Descriptor) WithURL(target string) Descriptor {
	d.URL = target
	return d
}

// Parse builds a Descriptor from the query parameters of an inbound request.
// defaultQuality replaces a missing, non-numeric or non-positive quality;
// pass 0 to use DefaultQuality.
func Parse(query url.Values, defaultQuality int) (Descriptor, error) {
	raw := query.Get(ParamURL)
	if raw == "" {
		return Descriptor{}, ErrMissingURL
	}

	if defaultQuality <= 0 {
		defaultQuality = DefaultQuality
	}

	format := mediatypes.FormatWebP
	if _, ok := query[ParamJPEG]; ok {
		format = mediatypes.FormatJPEG
	}

	return Descriptor{
		URL:       decodeTarget(raw),
		Format:    format,
		Grayscale: !numericZero(query[ParamGrayscale]),
		Quality:   parseQuality(query, defaultQuality),
	}, nil
}

// numericZero reports whether a single query value reads as the number zero.
// Blank values count as zero; repeated values never do.
func numericZero(values []string) bool {
	if len(values) != 1 {
		return false
	}
	v := strings.TrimSpace(values[0])
	if v == "" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}

// decodeTarget undoes one more level of percent-encoding. Clients commonly
// encode the target before placing it in the query string. A value with a
// malformed escape is returned as given.
func decodeTarget(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

func parseQuality(query url.Values, fallback int) int {
	value := query.Get(ParamLevel)
	if value == "" {
		value = query.Get(ParamQuality)
	}

	quality, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || quality <= 0 {
		return fallback
	}
	if quality > MaxQuality {
		return MaxQuality
	}
	return quality
}
