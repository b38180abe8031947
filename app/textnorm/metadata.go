package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeMetadata makes s safe for a persisted metadata field: speech
// cleaning, accents folded to their base letters, printable ASCII only, at
// most max characters.
func SanitizeMetadata(s string, max int) string {
	if s == "" {
		return ""
	}

	cleaned := foldAccents(CleanForSpeech(s))

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if r >= 32 && r < 127 {
			b.WriteRune(r)
		}
	}

	return Truncate(strings.Join(strings.Fields(b.String()), " "), max)
}

// SanitizeURL strips whitespace and control characters only. Every other
// character, including non-ASCII, is left as is.
func SanitizeURL(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 32 || r == 127 || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}

	return Truncate(b.String(), max)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
