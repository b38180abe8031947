package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcherGet(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>Hello</p></body></html>"))
	}))
	defer server.Close()

	page, err := NewHTTPFetcher(&http.Client{}, "", time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotUserAgent != DesktopUserAgent {
		t.Errorf("Expected desktop User-Agent, got '%s'", gotUserAgent)
	}
	if !strings.Contains(page.HTML, "<p>Hello</p>") {
		t.Errorf("Unexpected HTML: %s", page.HTML)
	}
	if page.URL != server.URL {
		t.Errorf("Expected page URL %s, got %s", server.URL, page.URL)
	}
}

func TestHTTPFetcherDecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" in Latin-1
		w.Write([]byte("<html><body>Caf\xe9</body></html>"))
	}))
	defer server.Close()

	page, err := NewHTTPFetcher(&http.Client{}, "", time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(page.HTML, "Café") {
		t.Errorf("Expected decoded 'Café', got: %s", page.HTML)
	}
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := NewHTTPFetcher(&http.Client{}, "", time.Second).Get(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 403 response")
	}
}
