// Package transcoder runs the image transcoding pipeline for a single request.
//
// A Pipeline moves through four states:
//
//	fetching_metadata -> transforming -> streaming -> done
//
// and ends in failed if any of the first three fails. Loading and encoding
// run in the background while the request goroutine waits on either their
// result or the request context. Once the encoded size is known the caller's
// info callback runs, so it can set Content-Length before the first byte is
// written. The encoded bytes are then streamed to the client in fixed-size
// chunks; a slow client stalls the copy rather than buffering more.
//
// Failures are wrapped with ErrMetadata, ErrTransform or ErrStream so the
// caller can tell which stage failed with errors.Is.
package transcoder
