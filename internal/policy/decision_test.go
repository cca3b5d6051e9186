package policy

import (
	"testing"

	"image-proxy/internal/mediatypes"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.Min != 1024 {
		t.Errorf("Expected Min=1024, got %d", th.Min)
	}
	if th.TransparentMin != 102400 {
		t.Errorf("Expected TransparentMin=102400, got %d", th.TransparentMin)
	}
}

func TestDecide(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name     string
		in       Input
		compress bool
		reason   string
	}{
		{
			name:     "large jpeg to webp",
			in:       Input{ContentType: "image/jpeg", ContentLength: 200000, Format: mediatypes.FormatWebP},
			compress: true,
			reason:   ReasonCompress,
		},
		{
			name:   "html is not an image",
			in:     Input{ContentType: "text/html", ContentLength: 200000, Format: mediatypes.FormatWebP},
			reason: ReasonNotImage,
		},
		{
			name:   "missing content type",
			in:     Input{ContentLength: 200000, Format: mediatypes.FormatWebP},
			reason: ReasonNotImage,
		},
		{
			name:   "zero length",
			in:     Input{ContentType: "image/jpeg", ContentLength: 0, Format: mediatypes.FormatWebP},
			reason: ReasonEmpty,
		},
		{
			name:   "range request",
			in:     Input{ContentType: "image/jpeg", ContentLength: 200000, HasRange: true, Format: mediatypes.FormatWebP},
			reason: ReasonRange,
		},
		{
			name:   "webp below threshold",
			in:     Input{ContentType: "image/jpeg", ContentLength: 1023, Format: mediatypes.FormatWebP},
			reason: ReasonBelowThreshold,
		},
		{
			name:     "webp at threshold",
			in:       Input{ContentType: "image/jpeg", ContentLength: 1024, Format: mediatypes.FormatWebP},
			compress: true,
			reason:   ReasonCompress,
		},
		{
			name:   "small png forced to jpeg",
			in:     Input{ContentType: "image/png", ContentLength: 500, Format: mediatypes.FormatJPEG},
			reason: ReasonSmallTransparent,
		},
		{
			name:   "gif just below transparent threshold",
			in:     Input{ContentType: "image/gif", ContentLength: 102399, Format: mediatypes.FormatJPEG},
			reason: ReasonSmallTransparent,
		},
		{
			name:     "png at transparent threshold",
			in:       Input{ContentType: "image/png", ContentLength: 102400, Format: mediatypes.FormatJPEG},
			compress: true,
			reason:   ReasonCompress,
		},
		{
			name:     "small jpeg forced to jpeg",
			in:       Input{ContentType: "image/jpeg", ContentLength: 500, Format: mediatypes.FormatJPEG},
			compress: true,
			reason:   ReasonCompress,
		},
		{
			name:     "small png to webp above base",
			in:       Input{ContentType: "image/png", ContentLength: 5000, Format: mediatypes.FormatWebP},
			compress: true,
			reason:   ReasonCompress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decide(tt.in, th)
			if v.Compress != tt.compress {
				t.Errorf("Compress = %v, want %v", v.Compress, tt.compress)
			}
			if v.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.reason)
			}
			if v.ContentType != tt.in.ContentType || v.ContentLength != tt.in.ContentLength {
				t.Error("Verdict must echo its inputs")
			}
		})
	}
}

func TestDecideRangeAlwaysBypasses(t *testing.T) {
	th := DefaultThresholds()
	types := []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/avif"}
	sizes := []int64{1, 1023, 1024, 50000, 102400, 10 << 20}
	formats := []mediatypes.Format{mediatypes.FormatWebP, mediatypes.FormatJPEG}

	for _, ct := range types {
		for _, size := range sizes {
			for _, format := range formats {
				v := Decide(Input{ContentType: ct, ContentLength: size, HasRange: true, Format: format}, th)
				if v.Compress {
					t.Errorf("Range request compressed: type=%s size=%d format=%s", ct, size, format)
				}
			}
		}
	}
}

func TestDecideWebPThresholdProperty(t *testing.T) {
	th := DefaultThresholds()

	for size := int64(1); size < 4096; size += 7 {
		v := Decide(Input{ContentType: "image/jpeg", ContentLength: size, Format: mediatypes.FormatWebP}, th)
		want := size >= th.Min
		if v.Compress != want {
			t.Fatalf("size %d: Compress = %v, want %v", size, v.Compress, want)
		}
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	th := DefaultThresholds()
	in := Input{ContentType: "image/png", ContentLength: 150000, Format: mediatypes.FormatJPEG}

	first := Decide(in, th)
	for i := 0; i < 10; i++ {
		if got := Decide(in, th); got != first {
			t.Fatalf("Decide returned %+v, then %+v", first, got)
		}
	}
}

func TestDecideCustomThresholds(t *testing.T) {
	th := Thresholds{Min: 10000, TransparentMin: 50000}

	if Decide(Input{ContentType: "image/jpeg", ContentLength: 9999, Format: mediatypes.FormatWebP}, th).Compress {
		t.Error("Expected bypass below custom Min")
	}
	if !Decide(Input{ContentType: "image/png", ContentLength: 50000, Format: mediatypes.FormatJPEG}, th).Compress {
		t.Error("Expected compress at custom TransparentMin")
	}
}

func TestVerdictBypass(t *testing.T) {
	v := Decide(Input{ContentType: "image/jpeg", ContentLength: 200000, Format: mediatypes.FormatWebP}, DefaultThresholds())
	b := v.Bypass(ReasonMemoryPressure)

	if b.Compress {
		t.Error("Expected Bypass to clear Compress")
	}
	if b.Reason != ReasonMemoryPressure {
		t.Errorf("Expected reason %q, got %q", ReasonMemoryPressure, b.Reason)
	}
	if b.ContentLength != 200000 {
		t.Error("Bypass must keep the echoed inputs")
	}
}
