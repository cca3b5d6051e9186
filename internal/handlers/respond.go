package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"image-proxy/internal/logging"
	"image-proxy/internal/metrics"
	"image-proxy/internal/origin"
	"image-proxy/internal/request"
	"image-proxy/internal/streaming"
	"image-proxy/internal/transcoder"
)

// Response headers set by the proxy
const (
	HeaderOriginalSize = "X-Original-Size"
	HeaderBytesSaved   = "X-Bytes-Saved"
	HeaderBypass       = "X-Proxy-Bypass"
)

// bypassHeaders are the only origin headers relayed on the bypass path
var bypassHeaders = []string{"Accept-Ranges", "Content-Type", "Content-Length", "Content-Range"}

// setProxyHeaders sets the headers shared by compressed and bypassed responses.
// An explicit identity encoding keeps the compression middleware off the body.
func setProxyHeaders(header http.Header) {
	header.Set("Content-Encoding", "identity")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cross-Origin-Resource-Policy", "cross-origin")
	header.Set("Cross-Origin-Embedder-Policy", "unsafe-none")
}

// bypass relays the origin response unmodified, status code included
func (h *Handlers) bypass(w *streaming.Tracker, r *http.Request, desc request.Descriptor, resp *origin.Response) {
	header := w.Header()
	for _, name := range bypassHeaders {
		if values := resp.Header.Values(name); len(values) > 0 {
			header[name] = append([]string(nil), values...)
		}
	}
	header.Set(HeaderBypass, "1")
	setProxyHeaders(header)
	w.WriteHeader(resp.StatusCode)

	n, err := streaming.Stream(r.Context(), w, resp.Body, h.config.Stream)
	metrics.OriginalBytesTotal.WithLabelValues("bypass").Add(float64(n))
	metrics.ServedBytesTotal.WithLabelValues("bypass").Add(float64(n))
	if err != nil {
		h.fail(w, r, desc, fmt.Errorf("%w: %w", errRelay, err))
	}
}

// compress runs the origin body through the transcoding pipeline. Headers
// are only committed once the encoded size is known.
func (h *Handlers) compress(w *streaming.Tracker, r *http.Request, desc request.Descriptor, resp *origin.Response) {
	originalSize := resp.ContentLength

	onInfo := func(info transcoder.Info) {
		header := w.Header()
		header.Set("Content-Type", info.Format.MimeType())
		header.Set("Content-Length", strconv.FormatInt(info.Size, 10))
		header.Set(HeaderOriginalSize, strconv.FormatInt(originalSize, 10))
		header.Set(HeaderBytesSaved, strconv.FormatInt(max(0, originalSize-info.Size), 10))
		setProxyHeaders(header)
		w.WriteHeader(http.StatusOK)
	}

	result, err := h.pipeline.Run(r.Context(), resp.Body, transcoder.Options{
		Format:    desc.Format,
		Grayscale: desc.Grayscale,
		Quality:   desc.Quality,
	}, onInfo, w)
	if err != nil {
		h.fail(w, r, desc, err)
		return
	}

	saved := max(0, originalSize-result.Size)
	metrics.OriginalBytesTotal.WithLabelValues("compress").Add(float64(originalSize))
	metrics.ServedBytesTotal.WithLabelValues("compress").Add(float64(result.Written))
	metrics.BytesSavedTotal.Add(float64(saved))

	logging.FromContext(r.Context()).Debug("transcoded %d -> %d bytes as %s in %v",
		originalSize, result.Size, result.Format, result.Duration)
}
