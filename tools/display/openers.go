package display

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"
)

// Opener shows a rendered artifact to the user and blocks until the viewing
// window has passed.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// NewOpener picks an Opener for the configured display mode: "headless" runs
// a chromedp browser, "browser" launches the OS default browser, "none" skips
// display entirely.
func NewOpener(mode string, wait time.Duration) (Opener, error) {
	switch mode {
	case "headless":
		return ChromeOpener{Wait: wait}, nil
	case "browser":
		return BrowserOpener{Wait: wait}, nil
	case "none":
		return NoopOpener{}, nil
	}
	return nil, fmt.Errorf("invalid display mode: %s", mode)
}

// ChromeOpener loads the artifact in a headless browser, keeps it alive for
// Wait, then tears the browser down. Useful on machines without a desktop.
type ChromeOpener struct {
	Wait time.Duration
}

func (o ChromeOpener) Open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving artifact path: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.Wait+30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("newsagent/1.0 (+contact@example.com)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	return chromedp.Run(bctx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(o.Wait),
	)
}

// BrowserOpener hands the artifact to the OS default browser and blocks for
// Wait so the run does not finish before the page has been seen.
type BrowserOpener struct {
	Wait time.Duration
}

func (o BrowserOpener) Open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving artifact path: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", abs)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", abs)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", abs)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	select {
	case <-time.After(o.Wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopOpener is used when display is disabled.
type NoopOpener struct{}

func (NoopOpener) Open(context.Context, string) error { return nil }
