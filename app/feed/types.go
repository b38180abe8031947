package feed

import (
	"time"
)

const (
	DefaultAuthor = "Unknown"
	DefaultTitle  = "No Title"
)

// Feed processing types
type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Entry is a feed item as published, with its date fields still raw.
type Entry struct {
	GUID       string
	Title      string
	Link       string
	Summary    string
	Author     string
	Categories []string
	Published  string
	Updated    string

	IsFiltered   bool
	FilterReason string
}

// Article is an eligible entry handed to the pipeline. Published is fixed at ingestion.
type Article struct {
	Title     string
	URL       string
	Summary   string
	Author    string
	Source    string
	Published time.Time
}

func (a Article) PublishedISO() string {
	return a.Published.UTC().Format(time.RFC3339)
}

// Configuration types
type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Title    string         `yaml:"title"`
	URL      string         `yaml:"url"`
	Order    int            `yaml:"order"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

// SourceName is the name recorded as an article's source.
func (c *Config) SourceName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

type ConfigSettings struct {
	Enabled  *bool `yaml:"enabled"` // nil means enabled
	MaxItems int  `yaml:"max_items"`
	Timeout  int  `yaml:"timeout"` // seconds
}

func (s ConfigSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GetTimeout returns the timeout as time.Duration
func (s ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second // default 30 seconds
	}
	return time.Duration(s.Timeout) * time.Second
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Stats counts what happened to the entries of one ingestion.
type Stats struct {
	Sources       int
	FailedSources int
	Entries       int
	Eligible      int
	Undated       int
	Malformed     int
	Stale         int
	Filtered      int
}
