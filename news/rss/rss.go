package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Headline is one item parsed out of an RSS feed.
type Headline struct {
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	Link        string `json:"link,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type feed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string `xml:"title"`
		Items []item `xml:"item"`
	} `xml:"channel"`
}

type item struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// Client fetches headlines from a single RSS feed URL.
type Client struct {
	FeedURL    string
	HTTPClient *http.Client
}

func NewClient(feedURL string, timeout time.Duration) *Client {
	return &Client{
		FeedURL:    feedURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// FetchHeadlines returns up to limit items from the feed, in feed order.
func (c *Client) FetchHeadlines(ctx context.Context, limit int) ([]Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", "newsagent/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed error: %s", resp.Status)
	}

	var result feed
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	items := result.Channel.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	headlines := make([]Headline, 0, len(items))
	for _, it := range items {
		headlines = append(headlines, Headline{
			Title:       strings.TrimSpace(it.Title),
			Summary:     strings.TrimSpace(it.Description),
			Link:        strings.TrimSpace(it.Link),
			PublishedAt: strings.TrimSpace(it.PubDate),
		})
	}
	return headlines, nil
}
