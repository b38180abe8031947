package feed

import (
	"fmt"
	"strings"
)

// filterFields maps a filter field name to the entry text it matches against.
var filterFields = map[string]func(Entry) string{
	"title":      func(e Entry) string { return e.Title },
	"summary":    func(e Entry) string { return e.Summary },
	"author":     func(e Entry) string { return e.Author },
	"link":       func(e Entry) string { return e.Link },
	"categories": func(e Entry) string { return strings.Join(e.Categories, " ") },
}

var validFilterFields = func() map[string]bool {
	valid := make(map[string]bool, len(filterFields))
	for name := range filterFields {
		valid[name] = true
	}
	return valid
}()

// Filterer applies a source's keyword rules. Matching is case-insensitive
// substring search.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run flags the entries a source's rules reject. Entries are never dropped
// here; the ingestor skips flagged ones.
func (f *Filterer) Run(entries []Entry, source *Config) []Entry {
	if len(source.Filters) == 0 {
		return entries
	}

	flagged := make([]Entry, len(entries))
	for i, entry := range entries {
		entry.IsFiltered, entry.FilterReason = f.reject(entry, source.Filters)
		flagged[i] = entry
	}
	return flagged
}

// reject returns the first rule that rejects entry. Excludes win over
// includes within a rule.
func (f *Filterer) reject(entry Entry, rules []ConfigFilter) (bool, string) {
	for _, rule := range rules {
		text := strings.ToLower(f.getFieldValue(entry, rule.Field))

		if keyword, ok := containsAny(text, rule.Excludes); ok {
			return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", rule.Field, keyword)
		}

		if len(rule.Includes) == 0 {
			continue
		}
		if _, ok := containsAny(text, rule.Includes); !ok {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", rule.Field, rule.Includes)
		}
	}
	return false, ""
}

func (f *Filterer) getFieldValue(entry Entry, field string) string {
	if get, ok := filterFields[field]; ok {
		return get(entry)
	}
	return ""
}

// containsAny reports the first keyword found in the lowercased text.
func containsAny(text string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return keyword, true
		}
	}
	return "", false
}
