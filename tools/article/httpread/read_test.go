package httpread

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func articlePage() string {
	para := strings.Repeat("Forecasters warned that heavy rain will continue through the weekend across the north of the country. ", 10)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Rain Expected Across the North</title></head>
<body>
<article>
<h1>Rain Expected Across the North</h1>
<p>%s</p>
<p>%s</p>
</article>
</body>
</html>`, para, para)
}

func TestExecExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	r := &Read{Timeout: 5 * time.Second, MaxChars: 20000, Client: srv.Client()}
	res, err := r.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !strings.Contains(res.Title, "Rain Expected") {
		t.Fatalf("Title = %q", res.Title)
	}
	if !strings.Contains(res.Text, "Forecasters warned") {
		t.Fatalf("Text missing article body: %q", res.Text)
	}
	if res.URL != srv.URL {
		t.Fatalf("URL = %q", res.URL)
	}
}

func TestExecTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	r := &Read{Timeout: 5 * time.Second, MaxChars: 50, Client: srv.Client()}
	res, err := r.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(res.Text) > 50 {
		t.Fatalf("Text not truncated: %d chars", len(res.Text))
	}
	if res.Text == "" {
		t.Fatal("Text empty after truncation")
	}
}

func TestExecRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := &Read{Timeout: 5 * time.Second, MaxChars: 1000, Client: srv.Client()}
	if _, err := r.Exec(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestExecRejectsInvalidURL(t *testing.T) {
	r := &Read{Timeout: time.Second, MaxChars: 1000}
	for _, raw := range []string{"", "   ", "not-a-url", "/relative/path"} {
		if _, err := r.Exec(context.Background(), raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
