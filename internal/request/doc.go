// Package request turns the query string of an inbound proxy request into a
// validated Descriptor.
//
// Parameters:
//
//	url      target image URL, percent-encoded (required)
//	jpeg     presence forces JPEG output instead of WebP
//	bw       "0" disables grayscale; anything else, or absence, enables it
//	l        encode quality 1-100 (alias: quality)
//
// Parse performs no I/O. A missing url yields ErrMissingURL, which handlers
// answer with the static banner.
package request
