package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"image-proxy/internal/logging"
	"image-proxy/internal/metrics"
	"image-proxy/internal/origin"
	"image-proxy/internal/request"
	"image-proxy/internal/streaming"
	"image-proxy/internal/transcoder"
)

// errRelay marks a failure while copying an origin body on the bypass path
var errRelay = errors.New("relaying origin body")

// scrubbedHeaders are removed before redirecting the client to the origin
var scrubbedHeaders = []string{"Cache-Control", "Expires", "Date", "ETag"}

// fail routes any stage failure. Before the status line is sent the client
// is redirected to the origin (or told the URL is invalid); afterwards the
// connection is aborted so a truncated body is never mistaken for a
// complete one.
func (h *Handlers) fail(w *streaming.Tracker, r *http.Request, desc request.Descriptor, err error) {
	log := logging.FromContext(r.Context())
	reason := failureReason(err)
	metrics.FailuresTotal.WithLabelValues(reason).Inc()

	switch {
	case w.Started():
		metrics.FailureOutcomesTotal.WithLabelValues("abort").Inc()
		if reason == "client_gone" {
			log.Debug("client went away after %d bytes: %v", w.Written(), err)
		} else {
			log.Warn("aborting %d response after %d bytes: %v", w.Status(), w.Written(), err)
		}
		panic(http.ErrAbortHandler)

	case reason == "client_gone":
		metrics.FailureOutcomesTotal.WithLabelValues("abort").Inc()
		log.Debug("client went away before response: %v", err)

	case reason == "invalid_url":
		metrics.FailureOutcomesTotal.WithLabelValues("bad_request").Inc()
		log.Debug("rejecting %q: %v", desc.URL, err)
		http.Error(w, "Invalid URL", http.StatusBadRequest)

	default:
		metrics.FailureOutcomesTotal.WithLabelValues("redirect").Inc()
		log.Info("redirecting to origin: %v", err)
		redirect(w, desc.URL)
	}
}

// failureReason maps an error onto the failure metric labels
func failureReason(err error) string {
	var statusErr *origin.StatusError
	var redirectErr *origin.RedirectError

	switch {
	case errors.Is(err, origin.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, context.Canceled):
		return "client_gone"
	case errors.As(err, &redirectErr):
		return "origin_redirect"
	case errors.As(err, &statusErr):
		return "origin_status"
	case errors.Is(err, origin.ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, transcoder.ErrMetadata):
		return "metadata"
	case errors.Is(err, transcoder.ErrTransform):
		return "transform"
	default:
		return "stream"
	}
}

// redirect sends the client straight to target with an empty 302
func redirect(w http.ResponseWriter, target string) {
	header := w.Header()
	for _, name := range scrubbedHeaders {
		header.Del(name)
	}
	// A nil value stops net/http from adding its own Date
	header["Date"] = nil
	header.Set("Content-Length", "0")
	header.Set("Location", encodeURI(target))
	w.WriteHeader(http.StatusFound)
}

// uriReserved are the characters encodeURI leaves alone besides ASCII
// letters and digits
const uriReserved = ";,/?:@&=+$-_.!~*'()#"

// encodeURI percent-encodes target the way browsers' encodeURI does, except
// that well-formed escapes already present are kept, so a URL is never
// double encoded.
func encodeURI(target string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(target))
	for i := 0; i < len(target); i++ {
		c := target[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c < 0x80 && strings.IndexByte(uriReserved, c) >= 0:
			b.WriteByte(c)
		case c == '%' && i+2 < len(target) && isHex(target[i+1]) && isHex(target[i+2]):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
