package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	sourceFileExt        = ".yml"
	defaultSourceTimeout = 30
)

var ErrSourceNotFound = errors.New("source not found")

// ConfigCache holds the newsletter source definitions found in a directory,
// one YAML file per source.
type ConfigCache struct {
	dir     string
	mu      sync.RWMutex
	sources map[string]*Config
}

func NewConfigCache(dir string) *ConfigCache {
	return &ConfigCache{
		dir:     dir,
		sources: make(map[string]*Config),
	}
}

// Run rereads every source file. The new set replaces the old one only when
// all files load; a missing directory yields an empty set.
func (cc *ConfigCache) Run() error {
	files, err := cc.sourceFiles()
	if err != nil {
		return err
	}

	loaded := make(map[string]*Config, len(files))
	for _, file := range files {
		source, err := readSourceFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		loaded[source.Name] = source
	}

	cc.mu.Lock()
	for name := range cc.sources {
		if _, ok := loaded[name]; !ok {
			slog.Debug("Source removed", "source", name)
		}
	}
	cc.sources = loaded
	cc.mu.Unlock()

	for _, source := range loaded {
		slog.Debug("Source loaded", "source", source.SourceName(), "file", source.Name, "enabled", source.Settings.IsEnabled())
	}

	return nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	source, ok := cc.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return source, nil
}

// GetEnabledConfigs returns enabled sources by ascending order value, ties
// broken by file name.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	enabled := make([]*Config, 0, len(cc.sources))
	for _, source := range cc.sources {
		if source.Settings.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	cc.mu.RUnlock()

	slices.SortFunc(enabled, func(a, b *Config) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})

	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.sources)
}

func (cc *ConfigCache) sourceFiles() ([]string, error) {
	if _, err := os.Stat(cc.dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(cc.dir, "*"+sourceFileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	return files, nil
}

func readSourceFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Config
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	source.Name = strings.TrimSuffix(filepath.Base(path), sourceFileExt)
	if source.Settings.Timeout == 0 {
		source.Settings.Timeout = defaultSourceTimeout
	}

	if err := source.validate(); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	return &source, nil
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Settings.MaxItems < 0 {
		return errors.New("max items must be non-negative")
	}
	if c.Settings.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}

	for i, filter := range c.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}
	return nil
}
