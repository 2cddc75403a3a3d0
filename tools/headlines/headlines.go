package headlines

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsagent/news"
)

const (
	// DefaultCount is the number of headlines fetched when none is requested.
	DefaultCount = 10

	// FileName is the plain-text artifact written on every fetch, overwritten
	// per run.
	FileName = "bbc_headlines.txt"
)

// Tool fetches headlines from a news source and writes them to a text file
// artifact: a timestamp header, a separator, then one numbered headline per
// line.
type Tool struct {
	source news.Source
	dir    string
	logger *log.Logger
}

// New creates a headlines tool writing artifacts under dir.
func New(source news.Source, dir string) *Tool {
	return &Tool{
		source: source,
		dir:    dir,
		logger: log.New(log.Writer(), "[HEADLINES] ", log.LstdFlags),
	}
}

// Fetch retrieves up to count headlines, writes the text artifact and returns
// a printable summary plus the artifact path.
func (t *Tool) Fetch(ctx context.Context, count int) (string, string, error) {
	if count <= 0 {
		count = DefaultCount
	}

	heads, err := t.source.FetchHeadlines(ctx, count)
	if err != nil {
		return "", "", fmt.Errorf("fetching headlines: %w", err)
	}
	if len(heads) == 0 {
		return "", "", errors.New("feed returned no headlines")
	}

	titles := make([]string, 0, len(heads))
	for _, h := range heads {
		titles = append(titles, h.Title)
	}

	path, err := t.writeFile(titles)
	if err != nil {
		return "", "", err
	}
	t.logger.Printf("Fetched %d headlines, saved to %s", len(titles), path)

	var b strings.Builder
	fmt.Fprintf(&b, "Fetched %d BBC headlines:\n", len(titles))
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	return strings.TrimRight(b.String(), "\n"), path, nil
}

func (t *Tool) writeFile(titles []string) (string, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(t.dir, FileName)

	var b strings.Builder
	fmt.Fprintf(&b, "BBC Headlines - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadSaved parses the most recently written headline artifact back into a
// list of titles. Used by the display tool, which renders whatever the last
// fetch produced.
func ReadSaved(dir string) ([]string, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no headlines fetched yet: %w", err)
		}
		return nil, err
	}

	var titles []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "BBC Headlines") || strings.HasPrefix(line, "=") {
			continue
		}
		if i := strings.Index(line, ". "); i > 0 {
			line = line[i+2:]
		}
		titles = append(titles, line)
	}
	if len(titles) == 0 {
		return nil, errors.New("saved headline file is empty")
	}
	return titles, nil
}
