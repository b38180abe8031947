package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinSentenceLength is the shortest trailing sentence kept by EnsureCompleteSentences.
const MinSentenceLength = 10

var (
	sentenceTerminators = regexp.MustCompile(`[.!?]+`)
	repeatedPeriods     = regexp.MustCompile(`\.+`)
)

// EnsureCompleteSentences drops a trailing fragment shorter than
// MinSentenceLength and rejoins the sentences with ". ", ending with a period.
// Text without any usable sentence is returned unchanged.
func EnsureCompleteSentences(text string) string {
	if text == "" {
		return text
	}

	var sentences []string
	for _, s := range sentenceTerminators.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	if n := len(sentences); n > 0 && utf8.RuneCountInString(sentences[n-1]) < MinSentenceLength {
		sentences = sentences[:n-1]
	}

	if len(sentences) == 0 {
		return text
	}

	result := strings.Join(sentences, ". ") + "."
	return repeatedPeriods.ReplaceAllString(result, ".")
}

// NormalizeSummary runs the full cleanup applied to a generated summary.
func NormalizeSummary(raw string) string {
	return PreprocessForTTS(EnsureCompleteSentences(CleanSummary(raw)))
}

// Truncate caps s at max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
