package media

import (
	"strings"
	"unicode/utf8"
)

const maxFilenameBytes = 120

// SanitizeFilename derives a download filename from user content, stripping
// characters that are unsafe on common filesystems and collapsing whitespace
// to hyphens. fallback is used when nothing survives.
func SanitizeFilename(name, fallback string) string {
	name = strings.TrimSpace(name)

	var b strings.Builder
	lastHyphen := false
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20:
			// dropped
		case r == ' ' || r == '\t':
			if !lastHyphen && b.Len() > 0 {
				b.WriteRune('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	out := strings.Trim(b.String(), "-. ")
	if out == "" {
		return fallback
	}
	if len(out) > maxFilenameBytes {
		// Back up to a rune boundary so multibyte names stay valid UTF-8.
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
