package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"image-proxy/internal/logging"
	"image-proxy/internal/metrics"

	"golang.org/x/net/idna"
)

// Via identifies the proxy to origins
const Via = "1.1 image-proxy"

// forwardedHeaders are the only inbound headers passed on to the origin
var forwardedHeaders = []string{"Cookie", "DNT", "Referer", "Range"}

// Config controls how origins are contacted
type Config struct {
	// Timeout bounds connecting and receiving response headers. The body is
	// bounded only by the request context.
	Timeout time.Duration
	// BlockPrivate refuses origins that resolve to private or reserved addresses
	BlockPrivate bool
	// UserAgent overrides the rotating desktop browser pool when set
	UserAgent string
	// MaxIdleConnsPerHost sizes the keep-alive pool per origin host
	MaxIdleConnsPerHost int
}

// DefaultConfig returns the defaults used when the environment does not override them
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		BlockPrivate:        true,
		MaxIdleConnsPerHost: 8,
	}
}

// Response is a successful (non-error, non-redirect) origin answer. Body is
// a single-use forward-only stream; the caller must close it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	// ContentType is the origin Content-Type, possibly empty
	ContentType string
	// ContentLength is 0 when the origin did not declare one
	ContentLength int64
}

// Fetcher issues origin requests
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with its own transport
func New(config Config) *Fetcher {
	dial := (&net.Dialer{Timeout: config.Timeout, KeepAlive: 30 * time.Second}).DialContext
	if config.BlockPrivate {
		dial = newSafeDialer(config.Timeout).DialContext
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dial,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		// Bypassed bodies must reach the client byte for byte
		DisableCompression: true,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config: config,
	}
}

// ParseTarget validates target as an absolute http(s) URL and normalises its
// host to ASCII
func ParseTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if net.ParseIP(hostname) == nil {
		ascii, err := idna.Lookup.ToASCII(hostname)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(ascii, port)
		} else {
			u.Host = ascii
		}
	}

	return u, nil
}

// Fetch issues a single GET for target. inbound supplies the client headers
// worth forwarding and may be nil. A 3xx with a Location is returned as
// *RedirectError and status >= 400 as *StatusError; in both cases the body
// is already closed.
func (f *Fetcher) Fetch(ctx context.Context, target string, inbound *http.Request) (*Response, error) {
	u, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	f.setHeaders(req, inbound)

	log := logging.FromContext(ctx)
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.OriginFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.OriginResponsesTotal.WithLabelValues("error").Inc()
		log.Debug("origin fetch %s failed: %v", u.Redacted(), err)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	metrics.OriginFetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.OriginResponsesTotal.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
	log.Debug("origin %s answered %d (%s, %d bytes)", u.Redacted(), resp.StatusCode,
		resp.Header.Get("Content-Type"), resp.ContentLength)

	if resp.StatusCode >= http.StatusBadRequest {
		drainAndClose(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode < http.StatusBadRequest {
		if loc := resp.Header.Get("Location"); loc != "" {
			drainAndClose(resp.Body)
			next, err := u.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("%w: bad redirect location %q: %w", ErrFetchFailed, loc, err)
			}
			return nil, &RedirectError{StatusCode: resp.StatusCode, Location: next.String()}
		}
	}

	length := resp.ContentLength
	if length < 0 {
		length = 0
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
	}, nil
}

func (f *Fetcher) setHeaders(req *http.Request, inbound *http.Request) {
	if inbound != nil {
		for _, name := range forwardedHeaders {
			if v := inbound.Header.Values(name); len(v) > 0 {
				req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
			}
		}
		if xff := clientAddress(inbound); xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
	}

	ua := f.config.UserAgent
	if ua == "" {
		ua = randomUserAgent()
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Via", Via)
}

// clientAddress returns the inbound X-Forwarded-For, or the peer address
func clientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// drainAndClose lets the connection be reused for small error bodies
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	if err := body.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Debug("closing origin body: %v", err)
	}
}
