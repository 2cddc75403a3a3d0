package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// jsonClient posts JSON and retries transient failures with exponential
// backoff. The request body is marshalled once and replayed per attempt.
type jsonClient struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func newJSONClient(timeout time.Duration, retries int, backoff time.Duration) *jsonClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	return &jsonClient{client: &http.Client{Timeout: timeout}, retries: retries, backoff: backoff}
}

func (c *jsonClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			done, err := consumeResponse(resp, out)
			if done {
				return err
			}
			lastErr = err
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// consumeResponse drains and closes the body. done reports whether the
// attempt should not be retried: any 2xx, or a non-retryable client error.
func consumeResponse(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return true, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return true, err
		}
		return true, nil
	}

	// read response body (best-effort) to include in error
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := errors.New(resp.Status + ": " + string(b))

	// 429 and 5xx are worth retrying; other 4xx will not get better.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return false, err
	}
	return true, err
}
