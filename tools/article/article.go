package article

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newsagent/tools/article/chromedp"
	"github.com/mohammad-safakhou/newsagent/tools/article/httpread"
	"github.com/mohammad-safakhou/newsagent/tools/article/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxChars = 2000
)

// Reader fetches a page and extracts the readable article from it.
type Reader interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type ReaderType string

const (
	HTTPReaderType     ReaderType = "http"
	ChromedpReaderType ReaderType = "chromedp"
)

// NewReader creates a single-strategy reader. Most callers want NewDefault,
// which falls back to headless rendering when a plain GET is not enough.
func NewReader(readerType ReaderType, timeout time.Duration, maxChars int) (Reader, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	switch readerType {
	case HTTPReaderType:
		return &httpread.Read{Timeout: timeout, MaxChars: maxChars}, nil
	case ChromedpReaderType:
		return &chromedp.Read{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, fmt.Errorf("unsupported reader type: %s", readerType)
	}
}

// NewDefault returns a reader that tries a plain HTTP fetch first and falls
// back to a headless browser for pages that need rendering.
func NewDefault(timeout time.Duration, maxChars int) (Reader, error) {
	primary, err := NewReader(HTTPReaderType, timeout, maxChars)
	if err != nil {
		return nil, err
	}
	fallback, err := NewReader(ChromedpReaderType, timeout, maxChars)
	if err != nil {
		return nil, err
	}
	return Fallback{Readers: []Reader{primary, fallback}}, nil
}

// Fallback chains readers and returns the first successful result.
type Fallback struct {
	Readers []Reader
}

func (f Fallback) Exec(ctx context.Context, url string) (models.Result, error) {
	canonical, err := CanonicalURL(url)
	if err != nil {
		return models.Result{}, fmt.Errorf("invalid url %q: %w", url, err)
	}

	var lastErr error
	for _, r := range f.Readers {
		res, err := r.Exec(ctx, canonical)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no readers configured")
	}
	return models.Result{}, lastErr
}
