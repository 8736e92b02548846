package media

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in       string
		fallback string
		want     string
	}{
		{"my video script", "out", "my-video-script"},
		{`a/b\c:d*e?f"g<h>i|j`, "out", "abcdefghij"},
		{"  spaced   out  ", "out", "spaced-out"},
		{"///", "fallback", "fallback"},
		{"", "fallback", "fallback"},
		{"Ngôi nhà ma ám", "out", "Ngôi-nhà-ma-ám"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in, tt.fallback); got != tt.want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("abcdef", 50)
	got := SanitizeFilename(long, "out")
	if len(got) > 120 {
		t.Errorf("expected at most 120 bytes, got %d", len(got))
	}
}

func TestSanitizeFilenameTruncatesOnRuneBoundary(t *testing.T) {
	// "ế" is three bytes; the leading "a" shifts the 120-byte cut into the
	// middle of a rune.
	long := "a" + strings.Repeat("ế", 60)
	got := SanitizeFilename(long, "out")
	if len(got) > 120 {
		t.Errorf("expected at most 120 bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated filename is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "ế") {
		t.Errorf("expected truncation to end on a whole rune, got %q", got)
	}
}
