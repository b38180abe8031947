package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	first := Key("summary", "article body")

	if first != Key("summary", "article body") {
		t.Error("Expected same key for same content")
	}
	if first == Key("summary", "another body") {
		t.Error("Expected different keys for different content")
	}
	if !strings.HasPrefix(first, "summary:") {
		t.Errorf("Expected namespace prefix, got %s", first)
	}
	if len(first) != len("summary:")+16 {
		t.Errorf("Expected 16 hex characters after prefix, got %s", first)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewCache(ctx, addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := Key("test", t.Name())
	defer c.Delete(ctx, key)

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, key, "value", time.Minute); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || got != "value" {
		t.Errorf("Expected hit with 'value', got '%s' ok=%v err=%v", got, ok, err)
	}

	if health := c.Health(ctx); health["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", health)
	}
}

func TestNewCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewCache(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Error("Expected error for unreachable Redis")
	}
}
