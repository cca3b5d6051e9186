package handlers

import (
	"errors"
	"io"
	"net/http"

	"image-proxy/internal/logging"
	"image-proxy/internal/metrics"
	"image-proxy/internal/origin"
	"image-proxy/internal/policy"
	"image-proxy/internal/request"
	"image-proxy/internal/startup"
	"image-proxy/internal/streaming"
)

// Proxy is the bandwidth-hero entry point.
// GET /?url=<target>&jpeg&bw=0&l=<quality>
func (h *Handlers) Proxy(w http.ResponseWriter, r *http.Request) {
	desc, err := request.Parse(r.URL.Query(), h.config.DefaultQuality)
	if errors.Is(err, request.ErrMissingURL) {
		writeBanner(w)
		return
	}

	ctx := r.Context()
	log := logging.FromContext(ctx)
	tw := streaming.NewTracker(w)

	resp, err := h.fetcher.Fetch(ctx, desc.URL, r)
	if err != nil {
		var redirect *origin.RedirectError
		if errors.As(err, &redirect) {
			desc = desc.WithURL(redirect.Location)
		}
		h.fail(tw, r, desc, err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug("closing origin body: %v", err)
		}
	}()

	verdict := policy.Decide(policy.Input{
		ContentType:   resp.ContentType,
		ContentLength: resp.ContentLength,
		HasRange:      r.Header.Get("Range") != "",
		Format:        desc.Format,
	}, h.config.Thresholds)
	if verdict.Compress && h.monitor.IsPaused() {
		verdict = verdict.Bypass(policy.ReasonMemoryPressure)
	}

	metrics.VerdictsTotal.WithLabelValues(verdict.Reason).Inc()
	log.Debug("verdict %s (compress=%v, type=%q, length=%d, format=%s)",
		verdict.Reason, verdict.Compress, verdict.ContentType, verdict.ContentLength, desc.Format)

	if verdict.Compress {
		h.compress(tw, r, desc, resp)
		return
	}
	h.bypass(tw, r, desc, resp)
}

// Favicon answers browser favicon probes without touching an origin
func (h *Handlers) Favicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeBanner(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, startup.Banner); err != nil {
		logging.Debug("writing banner: %v", err)
	}
}
