// Package digest renders stored articles as an RSS feed and as a spoken
// digest script.
package digest

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/lysyi3m/newsletter-digest/app/store"
)

const (
	DefaultTitle       = "AI Newsletter Digest"
	DefaultDescription = "AI summaries of the last 24 hours of newsletter articles"
)

type Generator struct {
	title   string
	baseURL string
	version string
	now     func() time.Time
}

func NewGenerator(title, baseURL, version string) *Generator {
	return &Generator{
		title:   cmp.Or(title, DefaultTitle),
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		now:     time.Now,
	}
}

// Run renders records as an RSS 2.0 document, one item per record in the
// given order.
func (g *Generator) Run(records []store.Metadata) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.title, 4)
	g.writeElement(&buf, "link", g.baseURL, 4)
	g.writeElement(&buf, "description", DefaultDescription, 4)

	if g.baseURL != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.baseURL+"/digest.xml")))
	}

	g.writeElement(&buf, "lastBuildDate", g.lastBuildDate(records).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Newsletter-Digest/%s", cmp.Or(g.version, "dev")), 4)
	g.writeElement(&buf, "language", "en", 4)

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) lastBuildDate(records []store.Metadata) time.Time {
	var latest time.Time
	for _, r := range records {
		if t, err := time.Parse(time.RFC3339, r.ProcessedAt); err == nil && t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return g.now()
	}
	return latest
}

func (g *Generator) writeItem(buf *bytes.Buffer, record store.Metadata) {
	buf.WriteString("    <item>\n")

	if record.URL != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", isURL(record.URL)))
		xml.EscapeText(buf, []byte(record.URL))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", record.Title, 6)
	g.writeElement(buf, "link", record.URL, 6)
	g.writeElement(buf, "description", cmp.Or(record.AISummary, record.OriginalSummary, "No description available"), 6)

	if record.OriginalSummary != "" && record.OriginalSummary != record.AISummary {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(record.OriginalSummary, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if published, err := time.Parse(time.RFC3339, record.Published); err == nil {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", record.Author, 6)
	g.writeElement(buf, "category", record.Source, 6)

	if record.Image != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(record.Image),
			html.EscapeString(imageType(record.Image))))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// imageType guesses the enclosure MIME type from the url path.
func imageType(imageURL string) string {
	p := imageURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
