package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContentSelectors are tried in order; the first one with visible text wins.
var ContentSelectors = []string{
	"article",
	`[role="main"]`,
	"main",
	".post-content",
	".entry-content",
	".article-content",
	".content",
	".post-body",
	"body",
}

// NonContentTags are removed before text extraction.
var NonContentTags = []string{"script", "style", "noscript", "template", "nav", "footer", "header", "aside"}

type imageRule struct {
	selector string
	attrs    []string
}

var imageRules = []imageRule{
	{`meta[property="og:image"]`, []string{"content"}},
	{`meta[name="twitter:image"]`, []string{"content"}},
	{`img[class*="featured"]`, []string{"src"}},
	{`img[class*="hero"]`, []string{"src"}},
	{"article img", []string{"src"}},
	{".content img", []string{"src"}},
	{"img", []string{"src"}},
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// ExtractMainText returns the whitespace-normalized text of the main content
// region of markup, or "" when nothing readable is found.
func ExtractMainText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	StripNonContent(doc)
	return extractMainText(doc)
}

// ExtractImage returns the first acceptable image URL found in markup,
// resolved against baseURL, or "".
func ExtractImage(markup, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return extractImage(doc, baseURL)
}

// StripNonContent removes navigation, chrome and script elements from doc.
func StripNonContent(doc *goquery.Document) {
	doc.Find(strings.Join(NonContentTags, ",")).Remove()
}

func extractMainText(doc *goquery.Document) string {
	for _, selector := range ContentSelectors {
		if text := normalizeWhitespace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return normalizeWhitespace(doc.Text())
}

func extractImage(doc *goquery.Document, baseURL string) string {
	base, _ := url.Parse(baseURL)

	for _, rule := range imageRules {
		node := doc.Find(rule.selector).First()
		if node.Length() == 0 {
			continue
		}

		var src string
		for _, attr := range rule.attrs {
			if src = strings.TrimSpace(node.AttrOr(attr, "")); src != "" {
				break
			}
		}
		if src == "" {
			continue
		}

		if resolved := resolveImageURL(src, base); isImageURL(resolved) {
			return resolved
		}
	}

	return ""
}

func resolveImageURL(src string, base *url.URL) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "http") || base == nil {
		return src
	}

	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

func isImageURL(s string) bool {
	if !strings.HasPrefix(s, "http") {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// normalizeWhitespace trims every line, splits lines on double spaces and
// joins the non-empty pieces with single spaces.
func normalizeWhitespace(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}
