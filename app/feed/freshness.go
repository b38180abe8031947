package feed

import (
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const DefaultWindow = 24 * time.Hour

// ParseInstant parses a loosely formatted date. Input without a zone is taken
// as UTC. The boolean is false when raw is empty or unparseable.
func ParseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		slog.Warn("Could not parse date", "value", raw, "error", err)
		return time.Time{}, false
	}

	return parsed.UTC(), true
}

// IsRecent reports whether instant lies in [reference-window, reference].
func IsRecent(instant, reference time.Time, window time.Duration) bool {
	if instant.IsZero() {
		return false
	}

	age := reference.Sub(instant)
	return age >= 0 && age <= window
}
