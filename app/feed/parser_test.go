package feed

import (
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <dc:creator>Test Author</dc:creator>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	entry1 := entries[0]
	if entry1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", entry1.Title)
	}
	if entry1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", entry1.Link)
	}
	if entry1.Summary != "Test Item 1 Description" {
		t.Errorf("Expected summary 'Test Item 1 Description', got: %s", entry1.Summary)
	}
	if entry1.Published != "Mon, 03 Jul 2023 10:00:00 GMT" {
		t.Errorf("Expected raw published date, got: %s", entry1.Published)
	}
	if entry1.Author != "Test Author" {
		t.Errorf("Expected author 'Test Author', got: %s", entry1.Author)
	}
	if len(entry1.Categories) != 2 {
		t.Errorf("Expected 2 categories, got: %d", len(entry1.Categories))
	}

	entry2 := entries[1]
	if entry2.GUID != "https://example.com/item2" {
		t.Errorf("Expected GUID to fall back to link, got: %s", entry2.GUID)
	}
	if entry2.Published != "" || entry2.Author != "" {
		t.Errorf("Expected empty published and author, got: '%s', '%s'", entry2.Published, entry2.Author)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <id>https://example.com/feed</id>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Atom Entry 1</title>
    <link href="https://example.com/atom1"/>
    <id>atom-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <summary>Atom Entry 1 Summary</summary>
    <author>
      <name>Atom Author</name>
      <email>atom@example.com</email>
    </author>
  </entry>
</feed>`

	parser := NewParser()
	_, entries, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Published != "" {
		t.Errorf("Expected no published date, got: %s", entry.Published)
	}
	if entry.Updated != "2023-07-03T10:00:00Z" {
		t.Errorf("Expected updated '2023-07-03T10:00:00Z', got: %s", entry.Updated)
	}
	if entry.Author != "Atom Author" {
		t.Errorf("Expected author 'Atom Author', got: %s", entry.Author)
	}
	if entry.Summary != "Atom Entry 1 Summary" {
		t.Errorf("Expected summary 'Atom Entry 1 Summary', got: %s", entry.Summary)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()

	if _, _, err := parser.Run([]byte(`<html><body>This is not a feed</body></html>`)); err == nil {
		t.Error("Expected error for invalid feed data")
	}
}

func TestAuthorName(t *testing.T) {
	tests := []struct {
		name     string
		item     *gofeed.Item
		expected string
	}{
		{"first named author", &gofeed.Item{Authors: []*gofeed.Person{nil, {Name: "  Jane  "}, {Name: "Bob"}}}, "Jane"},
		{"email when unnamed", &gofeed.Item{Authors: []*gofeed.Person{{Email: "jane@example.com"}}}, "jane@example.com"},
		{"single author field", &gofeed.Item{Author: &gofeed.Person{Name: "Ann"}}, "Ann"},
		{"no author", &gofeed.Item{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authorName(tt.item); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
