package news

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newsagent/news/rss"
)

// Source provides headlines from a remote feed.
type Source interface {
	FetchHeadlines(ctx context.Context, limit int) ([]rss.Headline, error)
}

type SourceType string

const (
	SourceTypeRSS SourceType = "rss"
)

// NewSource creates a headline source for the configured feed.
func NewSource(t SourceType, feedURL string, timeout time.Duration) (Source, error) {
	switch t {
	case SourceTypeRSS:
		return rss.NewClient(feedURL, timeout), nil
	}
	return nil, fmt.Errorf("invalid source type: %s", t)
}
