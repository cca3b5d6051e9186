package request

import (
	"errors"
	"net/url"
	"testing"

	"image-proxy/internal/mediatypes"
)

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	return values
}

func TestParseMissingURL(t *testing.T) {
	for _, raw := range []string{"", "url=", "jpeg=1&bw=0"} {
		_, err := Parse(mustQuery(t, raw), 0)
		if !errors.Is(err, ErrMissingURL) {
			t.Errorf("Parse(%q) error = %v, want ErrMissingURL", raw, err)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	d, err := Parse(mustQuery(t, "url=https://example.com/a.jpg"), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if d.URL != "https://example.com/a.jpg" {
		t.Errorf("Expected URL to be preserved, got %q", d.URL)
	}
	if d.Format != mediatypes.FormatWebP {
		t.Errorf("Expected default format webp, got %s", d.Format)
	}
	if !d.Grayscale {
		t.Error("Expected grayscale to be enabled by default")
	}
	if d.Quality != DefaultQuality {
		t.Errorf("Expected default quality %d, got %d", DefaultQuality, d.Quality)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  mediatypes.Format
	}{
		{name: "no hint", query: "url=x", want: mediatypes.FormatWebP},
		{name: "jpeg with value", query: "url=x&jpeg=1", want: mediatypes.FormatJPEG},
		{name: "jpeg bare", query: "url=x&jpeg", want: mediatypes.FormatJPEG},
		{name: "jpeg zero still present", query: "url=x&jpeg=0", want: mediatypes.FormatJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(mustQuery(t, tt.query), 0)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.Format != tt.want {
				t.Errorf("Format = %s, want %s", d.Format, tt.want)
			}
		})
	}
}

func TestParseGrayscale(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"url=x", true},
		{"url=x&bw=1", true},
		{"url=x&bw=yes", true},
		{"url=x&bw=0&bw=0", true},
		{"url=x&bw=0", false},
		{"url=x&bw=", false},
		{"url=x&bw", false},
		{"url=x&bw=%20", false},
		{"url=x&bw=00", false},
		{"url=x&bw=0.0", false},
		{"url=x&bw=-0", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d, err := Parse(mustQuery(t, tt.query), 0)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.Grayscale != tt.want {
				t.Errorf("Grayscale = %v, want %v", d.Grayscale, tt.want)
			}
		})
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		defaultQuality int
		want           int
	}{
		{name: "explicit l", query: "url=x&l=40", want: 40},
		{name: "quality alias", query: "url=x&quality=55", want: 55},
		{name: "l wins over quality", query: "url=x&l=30&quality=90", want: 30},
		{name: "non numeric", query: "url=x&l=abc", want: DefaultQuality},
		{name: "zero", query: "url=x&l=0", want: DefaultQuality},
		{name: "negative", query: "url=x&l=-5", want: DefaultQuality},
		{name: "above range clamps", query: "url=x&l=250", want: MaxQuality},
		{name: "boundary 1", query: "url=x&l=1", want: 1},
		{name: "boundary 100", query: "url=x&l=100", want: 100},
		{name: "configured default", query: "url=x", defaultQuality: 40, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(mustQuery(t, tt.query), tt.defaultQuality)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.Quality != tt.want {
				t.Errorf("Quality = %d, want %d", d.Quality, tt.want)
			}
		})
	}
}

func TestParseDecodesTarget(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "single encoded",
			query: "url=https%3A%2F%2Fexample.com%2Fa.jpg",
			want:  "https://example.com/a.jpg",
		},
		{
			name:  "double encoded",
			query: "url=https%253A%252F%252Fexample.com%252Fa%2520b.jpg",
			want:  "https://example.com/a b.jpg",
		},
		{
			name:  "malformed escape kept",
			query: "url=https%3A%2F%2Fexample.com%2F100%25zz.jpg",
			want:  "https://example.com/100%zz.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(mustQuery(t, tt.query), 0)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.URL != tt.want {
				t.Errorf("URL = %q, want %q", d.URL, tt.want)
			}
		})
	}
}

func TestDescriptorWithURL(t *testing.T) {
	d := Descriptor{URL: "https://a/", Format: mediatypes.FormatJPEG, Quality: 10}
	moved := d.WithURL("https://b/")

	if moved.URL != "https://b/" {
		t.Errorf("Expected new URL, got %q", moved.URL)
	}
	if d.URL != "https://a/" {
		t.Error("WithURL must not modify the receiver")
	}
	if moved.Format != d.Format || moved.Quality != d.Quality {
		t.Error("WithURL must preserve the other fields")
	}
}
