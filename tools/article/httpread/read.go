package httpread

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/newsagent/tools/article/models"
)

// Read extracts articles with a plain HTTP GET. Cheap and sufficient for
// server-rendered pages, which covers most news sites.
type Read struct {
	Timeout  time.Duration
	MaxChars int
	Client   *http.Client // override for tests; defaults to http.DefaultClient
}

func (r *Read) Exec(ctx context.Context, rawURL string) (models.Result, error) {
	parsed, err := parseURL(rawURL)
	if err != nil {
		return models.Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Result{}, fmt.Errorf("building article request: %w", err)
	}
	req.Header.Set("User-Agent", "newsagent/1.0 (+contact@example.com)")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Result{}, fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Result{}, fmt.Errorf("article fetch error: %s", resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return models.Result{}, fmt.Errorf("extracting article content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return models.Result{}, errors.New("no readable content extracted")
	}
	if len(text) > r.MaxChars {
		text = text[:r.MaxChars]
	}

	return models.Result{
		URL:      rawURL,
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		SiteName: strings.TrimSpace(article.SiteName),
		Text:     text,
		FetchMS:  int(time.Since(t0) / time.Millisecond),
	}, nil
}

func parseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("invalid url")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url: %s", raw)
	}
	return parsed, nil
}
