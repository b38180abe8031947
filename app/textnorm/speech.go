// Package textnorm turns generated and scraped text into speech-safe and
// storage-safe strings.
package textnorm

import (
	"regexp"
	"strings"
)

var unwantedChars = []string{
	"*", "/", "\\", "`", "~", "^", "|", "<", ">", "{", "}", "[", "]",
	"§", "¶", "†", "‡", "•", "◦", "▪", "▫", "–", "—", "‘", "’", "“", "”",
	"…", "¡", "¿", "«", "»", "‹", "›", "€", "£", "¥", "©", "®", "™",
}

var unwantedReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(unwantedChars)*2)
	for _, c := range unwantedChars {
		pairs = append(pairs, c, " ")
	}
	return strings.NewReplacer(pairs...)
}()

var (
	symbolPattern     = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s.,!?;:()\-'"&@#%]`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	markdownPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*\*(.*?)\*\*`),
		regexp.MustCompile(`\*(.*?)\*`),
		regexp.MustCompile(`__(.*?)__`),
		regexp.MustCompile(`_(.*?)_`),
		regexp.MustCompile("`(.*?)`"),
	}

	backslashPattern = regexp.MustCompile(`\\\w+`)
)

// CleanForSpeech removes symbols and markup a speech engine would read aloud
// or choke on. Letters, digits and ordinary punctuation are kept.
func CleanForSpeech(text string) string {
	if text == "" {
		return ""
	}

	cleaned := unwantedReplacer.Replace(text)
	cleaned = symbolPattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")

	for _, p := range markdownPatterns {
		cleaned = p.ReplaceAllString(cleaned, "$1")
	}

	cleaned = backslashPattern.ReplaceAllString(cleaned, "")

	return strings.TrimSpace(cleaned)
}

var (
	bracketCitation = regexp.MustCompile(`\[\d+\]`)
	parenCitation   = regexp.MustCompile(`\(\d+\)`)
	referencesTail  = regexp.MustCompile(`(?is)\n*(?:references?|sources?):.*$`)
	numberedLine    = regexp.MustCompile(`(?m)\n\d+\.\s+.*$`)
	trailingNumber  = regexp.MustCompile(`\s+\d+\s*$`)
	leadingNumber   = regexp.MustCompile(`^\s*\d+\s+`)
)

// CleanSummary strips citation markers and reference sections from a
// generated summary, then applies CleanForSpeech.
func CleanSummary(text string) string {
	if text == "" {
		return ""
	}

	text = bracketCitation.ReplaceAllString(text, "")
	text = parenCitation.ReplaceAllString(text, "")
	text = referencesTail.ReplaceAllString(text, "")
	text = numberedLine.ReplaceAllString(text, "")
	text = trailingNumber.ReplaceAllString(text, "")
	text = leadingNumber.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(CleanForSpeech(text))
}

var (
	spacedDecimal = regexp.MustCompile(`(\d+)\.\s+(\d+)`)
	modelNumber   = regexp.MustCompile(`\b([A-Z]+)\s+(\d+(?:\.\d+)?)\b`)
	spacedAI      = regexp.MustCompile(`\bA\.\s*I\.`)
	spacedUS      = regexp.MustCompile(`\bU\.\s*S\.`)
	spacedUK      = regexp.MustCompile(`\bU\.\s*K\.`)
	acronym4      = regexp.MustCompile(`\b([A-Z])\.\s*([A-Z])\.\s*([A-Z])\.\s*([A-Z])\.`)
	acronym3      = regexp.MustCompile(`\b([A-Z])\.\s*([A-Z])\.\s*([A-Z])\.`)
	corpSuffix    = regexp.MustCompile(`\b(Inc|Ltd|Corp)\.`)

	corpExpansions = map[string]string{
		"Inc":  "Incorporated",
		"Ltd":  "Limited",
		"Corp": "Corporation",
	}

	spelledTerms = []struct {
		pattern *regexp.Regexp
		spoken  string
	}{
		{regexp.MustCompile(`\bAPI\b`), "A-P-I"},
		{regexp.MustCompile(`\bURL\b`), "U-R-L"},
		{regexp.MustCompile(`\bHTTP\b`), "H-T-T-P"},
	}
)

// PreprocessForTTS rewrites numbers, model names and abbreviations into forms
// speech engines pronounce correctly.
func PreprocessForTTS(text string) string {
	// twice, so chains like "1. 2. 3" close up fully
	text = spacedDecimal.ReplaceAllString(text, "$1.$2")
	text = spacedDecimal.ReplaceAllString(text, "$1.$2")

	text = modelNumber.ReplaceAllString(text, "$1-$2")

	text = replaceKeepingFinalStop(spacedAI, text, func(string) string { return "AI" })
	text = replaceKeepingFinalStop(spacedUS, text, func(string) string { return "US" })
	text = replaceKeepingFinalStop(spacedUK, text, func(string) string { return "UK" })
	text = replaceKeepingFinalStop(acronym4, text, func(m string) string {
		return acronym4.ReplaceAllString(m, "$1$2$3$4")
	})
	text = replaceKeepingFinalStop(acronym3, text, func(m string) string {
		return acronym3.ReplaceAllString(m, "$1$2$3")
	})
	text = replaceKeepingFinalStop(corpSuffix, text, func(m string) string {
		return corpExpansions[strings.TrimSuffix(m, ".")]
	})

	for _, term := range spelledTerms {
		text = term.pattern.ReplaceAllString(text, term.spoken)
	}

	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// replaceKeepingFinalStop rewrites each match of a dotted abbreviation. A
// match that ends the text keeps one period so the sentence stays closed.
func replaceKeepingFinalStop(re *regexp.Regexp, text string, rewrite func(string) string) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(rewrite(text[m[0]:m[1]]))
		if strings.TrimSpace(text[m[1]:]) == "" {
			b.WriteString(".")
		}
		last = m[1]
	}
	b.WriteString(text[last:])

	return b.String()
}
