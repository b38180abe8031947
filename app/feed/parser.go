package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser turns RSS, Atom or JSON feed bytes into entries.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses data. Date fields stay raw; freshness decides how to read them.
func (p *Parser) Run(data []byte) (*Metadata, []Entry, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       strings.TrimSpace(parsed.Title),
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item != nil {
			entries = append(entries, p.normalizeItem(item))
		}
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	link := strings.TrimSpace(item.Link)

	return Entry{
		GUID:       cmp.Or(item.GUID, link),
		Title:      strings.TrimSpace(item.Title),
		Link:       link,
		Summary:    item.Description,
		Author:     authorName(item),
		Categories: item.Categories,
		Published:  strings.TrimSpace(item.Published),
		Updated:    strings.TrimSpace(item.Updated),
	}
}

// authorName takes the first named author, then the single author field,
// falling back to an email when no name is given.
func authorName(item *gofeed.Item) string {
	candidates := make([]*gofeed.Person, 0, len(item.Authors)+1)
	candidates = append(candidates, item.Authors...)
	candidates = append(candidates, item.Author)

	for _, person := range candidates {
		if person == nil {
			continue
		}
		if name := cmp.Or(strings.TrimSpace(person.Name), strings.TrimSpace(person.Email)); name != "" {
			return name
		}
	}
	return ""
}
