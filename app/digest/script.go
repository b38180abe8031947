package digest

import (
	"cmp"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/newsletter-digest/app/feed"
	"github.com/lysyi3m/newsletter-digest/app/store"
	"github.com/lysyi3m/newsletter-digest/app/textnorm"
)

const (
	scriptIntro  = "Welcome to your AI Newsletter Summary. Here are today's top stories.\n\n"
	scriptOutro  = "That concludes your newsletter summary. Have a great day!"
	scriptBridge = "Next article.\n\n"
)

// Script composes the spoken digest of records, prepared for speech
// synthesis, and reports how many articles it holds. With a positive max,
// the script stops before the first article that would push it past max
// characters.
func Script(records []store.Metadata, max int) (string, int) {
	var b strings.Builder
	b.WriteString(scriptIntro)

	length := utf8.RuneCountInString(scriptIntro) + utf8.RuneCountInString(scriptOutro)
	included := 0
	for i, r := range records {
		segment := textnorm.PreprocessForTTS(articleSegment(i+1, r)) + "\n\n"
		if i > 0 {
			segment = scriptBridge + segment
		}

		n := utf8.RuneCountInString(segment)
		if max > 0 && length+n > max {
			break
		}

		b.WriteString(segment)
		length += n
		included++
	}

	b.WriteString(scriptOutro)
	return b.String(), included
}

func articleSegment(n int, r store.Metadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Article %d: %s\n", n, cmp.Or(r.Title, feed.DefaultTitle))

	if r.Author != "" && r.Author != feed.DefaultAuthor {
		fmt.Fprintf(&b, "By %s from %s.\n", r.Author, r.Source)
	} else {
		fmt.Fprintf(&b, "From %s.\n", r.Source)
	}

	b.WriteString(cmp.Or(r.AISummary, r.OriginalSummary))
	return b.String()
}
