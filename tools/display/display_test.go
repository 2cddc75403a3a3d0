package display

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeHeadlineArtifact(t *testing.T, dir string, lines []string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("BBC Headlines - 2025-01-01 10:00:00\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	if err := os.WriteFile(filepath.Join(dir, "bbc_headlines.txt"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestShowRendersHTML(t *testing.T) {
	dir := t.TempDir()
	writeHeadlineArtifact(t, dir, []string{"1. First story", "2. Second <story>"})

	tool := New(dir, 10*time.Second)
	output, artifact, err := tool.Show()
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if artifact != filepath.Join(dir, FileName) {
		t.Fatalf("artifact path = %q", artifact)
	}
	if !strings.Contains(output, "2 BBC headlines") {
		t.Fatalf("output = %q", output)
	}
	if !strings.Contains(output, "10 seconds") {
		t.Fatalf("output missing countdown note: %q", output)
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "<li>First story</li>") {
		t.Fatalf("html missing headline: %s", html)
	}
	if !strings.Contains(html, "Second &lt;story&gt;") {
		t.Fatalf("html should escape markup: %s", html)
	}
	if !strings.Contains(html, "window.close()") {
		t.Fatalf("html missing countdown script: %s", html)
	}
}

func TestShowRequiresFetchedHeadlines(t *testing.T) {
	tool := New(t.TempDir(), time.Second)
	if _, _, err := tool.Show(); err == nil {
		t.Fatal("expected error when nothing has been fetched")
	}
}

func TestNewOpenerModes(t *testing.T) {
	if _, err := NewOpener("headless", time.Second); err != nil {
		t.Fatalf("headless: %v", err)
	}
	if _, err := NewOpener("browser", time.Second); err != nil {
		t.Fatalf("browser: %v", err)
	}
	op, err := NewOpener("none", time.Second)
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if err := op.Open(context.Background(), "anything.html"); err != nil {
		t.Fatalf("noop opener should never fail: %v", err)
	}
	if _, err := NewOpener("hologram", time.Second); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
