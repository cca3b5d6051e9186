package origin

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testFetcher() *Fetcher {
	config := DefaultConfig()
	config.BlockPrivate = false
	return New(config)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantErr  bool
		wantHost string
	}{
		{"http", "http://example.com/a.png", false, "example.com"},
		{"https with port", "https://example.com:8443/a.png", false, "example.com:8443"},
		{"idn host", "http://bücher.example/a.png", false, "xn--bcher-kva.example"},
		{"ip literal", "http://192.0.2.1/a.png", false, "192.0.2.1"},
		{"relative", "/a.png", true, ""},
		{"protocol relative", "//example.com/a.png", true, ""},
		{"ftp", "ftp://example.com/a.png", true, ""},
		{"data", "data:image/png;base64,AAAA", true, ""},
		{"no host", "http:///a.png", true, ""},
		{"garbage", "http://[::1", true, ""},
		{"not a url", "not a url", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseTarget(tt.target)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("Expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if u.Host != tt.wantHost {
				t.Errorf("Expected host %q, got %q", tt.wantHost, u.Host)
			}
		})
	}
}

func TestFetchForwardsSelectedHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer server.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/?url=x", nil)
	inbound.Header.Set("Cookie", "session=1")
	inbound.Header.Set("DNT", "1")
	inbound.Header.Set("Referer", "https://site.example/")
	inbound.Header.Set("Range", "bytes=0-10")
	inbound.Header.Set("Authorization", "Bearer secret")
	inbound.Header.Set("Accept-Encoding", "gzip")
	inbound.Header.Set("X-Custom", "nope")
	inbound.RemoteAddr = "203.0.113.9:51234"

	resp, err := testFetcher().Fetch(context.Background(), server.URL+"/img.png", inbound)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer resp.Body.Close()

	for name, want := range map[string]string{
		"Cookie":          "session=1",
		"Dnt":             "1",
		"Referer":         "https://site.example/",
		"Range":           "bytes=0-10",
		"Via":             Via,
		"X-Forwarded-For": "203.0.113.9",
	} {
		if got.Get(name) != want {
			t.Errorf("Header %s = %q, want %q", name, got.Get(name), want)
		}
	}
	for _, name := range []string{"Authorization", "X-Custom", "Accept-Encoding"} {
		if got.Get(name) != "" {
			t.Errorf("Header %s should not be forwarded, got %q", name, got.Get(name))
		}
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "Mozilla/5.0") {
		t.Errorf("Expected browser User-Agent, got %q", got.Get("User-Agent"))
	}
}

func TestFetchKeepsInboundForwardedFor(t *testing.T) {
	var xff, ua string
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		xff = r.Header.Get("X-Forwarded-For")
		ua = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BlockPrivate = false
	config.UserAgent = "custom-agent/1.0"

	inbound := httptest.NewRequest(http.MethodGet, "/", nil)
	inbound.Header.Set("X-Forwarded-For", "198.51.100.7")

	resp, err := New(config).Fetch(context.Background(), server.URL, inbound)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	resp.Body.Close()

	if xff != "198.51.100.7" {
		t.Errorf("Expected inbound X-Forwarded-For, got %q", xff)
	}
	if ua != "custom-agent/1.0" {
		t.Errorf("Expected override User-Agent, got %q", ua)
	}
}

func TestFetchResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sized":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Content-Length", "5")
			_, _ = w.Write([]byte("jpeg!"))
		case "/chunked":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("part1"))
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte("part2"))
		case "/partial":
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Content-Range", "bytes 0-3/100")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte("abcd"))
		}
	}))
	defer server.Close()

	tests := []struct {
		path       string
		status     int
		length     int64
		body       string
		contentTyp string
	}{
		{"/sized", http.StatusOK, 5, "jpeg!", "image/jpeg"},
		{"/chunked", http.StatusOK, 0, "part1part2", "image/png"},
		{"/partial", http.StatusPartialContent, 4, "abcd", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := testFetcher().Fetch(context.Background(), server.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if resp.ContentLength != tt.length {
				t.Errorf("Expected length %d, got %d", tt.length, resp.ContentLength)
			}
			if resp.ContentType != tt.contentTyp {
				t.Errorf("Expected type %q, got %q", tt.contentTyp, resp.ContentType)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, body)
			}
		})
	}
}

func TestFetchErrorStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := testFetcher().Fetch(context.Background(), server.URL, nil)
		server.Close()

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Errorf("Expected StatusError for %d, got %v", code, err)
			continue
		}
		if statusErr.StatusCode != code {
			t.Errorf("Expected code %d, got %d", code, statusErr.StatusCode)
		}
	}
}

func TestFetchRedirectNotFollowed(t *testing.T) {
	followed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/new.png" {
			followed = true
			return
		}
		http.Redirect(w, r, "/new.png", http.StatusMovedPermanently)
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(context.Background(), server.URL+"/old.png", nil)

	var redirect *RedirectError
	if !errors.As(err, &redirect) {
		t.Fatalf("Expected RedirectError, got %v", err)
	}
	if redirect.StatusCode != http.StatusMovedPermanently {
		t.Errorf("Expected 301, got %d", redirect.StatusCode)
	}
	if redirect.Location != server.URL+"/new.png" {
		t.Errorf("Expected resolved location %s/new.png, got %s", server.URL, redirect.Location)
	}
	if followed {
		t.Error("Redirect must not be followed server-side")
	}
}

func TestFetchNotModifiedWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	resp, err := testFetcher().Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", resp.StatusCode)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := testFetcher().Fetch(context.Background(), "ftp://example.com/x", nil)
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Expected ErrInvalidURL, got %v", err)
	}
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	_, err := testFetcher().Fetch(context.Background(), target, nil)
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
}

func TestFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher().Fetch(ctx, "http://example.com/", nil)
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected ErrFetchFailed wrapping context.Canceled, got %v", err)
	}
}

func TestFetchBlocksPrivateOrigins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("Private origin must not be contacted")
	}))
	defer server.Close()

	_, err := New(DefaultConfig()).Fetch(context.Background(), server.URL, nil)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Expected ErrFetchFailed, got %v", err)
	}
	if !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("Expected ErrPrivateAddress in chain, got %v", err)
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"::", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := IsPrivateIP(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("IsPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestRandomUserAgent(t *testing.T) {
	for range 20 {
		ua := randomUserAgent()
		if !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Fatalf("Unexpected user agent %q", ua)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	if msg := (&StatusError{StatusCode: 404}).Error(); !strings.Contains(msg, "404") {
		t.Errorf("StatusError message missing code: %q", msg)
	}
	msg := (&RedirectError{StatusCode: 302, Location: "http://example.com/b"}).Error()
	if !strings.Contains(msg, "302") || !strings.Contains(msg, "http://example.com/b") {
		t.Errorf("RedirectError message incomplete: %q", msg)
	}
}
