package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Default viewport of a calendar snapshot.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 1024
	DefaultTimeout = 30 * time.Second
)

// ReadySelector matches the widget root once the page has loaded its
// sessions and rendered the month.
const ReadySelector = `#ilt-calendar[data-ready="true"]`

// SnapshotOptions defines one headless Chromium screenshot of the
// calendar page.
type SnapshotOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?month=2024-05".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport in pixels; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds navigation, the ready wait and the screenshot.
	Timeout time.Duration

	// Selector, when set, captures only the matching element instead of
	// the full page.
	Selector string
}

func (o *SnapshotOptions) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// SnapshotCalendar opens opts.URL in headless Chromium, waits for the
// calendar to report data-ready and writes a PNG screenshot.
func SnapshotCalendar(parentCtx context.Context, opts SnapshotOptions) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
	}
	if opts.Selector != "" {
		tasks = append(tasks, chromedp.Screenshot(opts.Selector, &png, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.FullScreenshot(&png, 100))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
