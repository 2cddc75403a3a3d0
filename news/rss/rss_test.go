package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>BBC News</title>
    <item>
      <title>First headline</title>
      <description>First summary</description>
      <link>https://example.org/1</link>
      <pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second headline</title>
      <description>Second summary</description>
      <link>https://example.org/2</link>
      <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Third headline</title>
      <description>Third summary</description>
      <link>https://example.org/3</link>
      <pubDate>Mon, 24 Aug 2026 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestFetchHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	headlines, err := client.FetchHeadlines(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchHeadlines: %v", err)
	}
	if len(headlines) != 3 {
		t.Fatalf("expected 3 headlines, got %d", len(headlines))
	}
	if headlines[0].Title != "First headline" {
		t.Fatalf("first title = %q", headlines[0].Title)
	}
	if headlines[1].Summary != "Second summary" {
		t.Fatalf("second summary = %q", headlines[1].Summary)
	}
	if headlines[2].Link != "https://example.org/3" {
		t.Fatalf("third link = %q", headlines[2].Link)
	}
}

func TestFetchHeadlinesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	headlines, err := client.FetchHeadlines(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchHeadlines: %v", err)
	}
	if len(headlines) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(headlines))
	}
}

func TestFetchHeadlinesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.FetchHeadlines(context.Background(), 5); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestFetchHeadlinesBadXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.FetchHeadlines(context.Background(), 5); err == nil {
		t.Fatal("expected an error for malformed xml")
	}
}
