// Package browser drives a real Chromium instance through Playwright and
// exposes the small set of page operations the form agent needs.
package browser

import (
	"context"
	"time"
)

// Defaults for new pages.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
	DefaultTimeout        = 30 * time.Second
	DefaultMaxPages       = 4
	DefaultLocale         = "ja-JP"
)

// Page is one browser tab. Every blocking call honours ctx: a deadline on
// ctx caps the Playwright timeout of the call.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Select(ctx context.Context, selector, value string) error
	WaitFor(ctx context.Context, selector string) error
	FrameURLs() []string
	URL() string
	Close() error
}

// Launcher opens pages.
type Launcher interface {
	NewPage(ctx context.Context) (Page, error)
}

// Options configures a Manager.
type Options struct {
	// Headless runs Chromium without a window.
	Headless bool

	// Timeout is the default per-operation timeout.
	Timeout time.Duration

	// MaxPages bounds the number of concurrently open pages.
	MaxPages int

	Viewport Viewport

	// Locale is sent as the browser locale; Japanese forms often render
	// differently otherwise.
	Locale string

	// SkipInstall assumes the Playwright driver and browsers are present.
	SkipInstall bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	return o
}

// timeoutMillis returns the Playwright timeout for a call: the default,
// shortened to whatever remains of ctx's deadline.
func timeoutMillis(ctx context.Context, def time.Duration) float64 {
	d := def
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return float64(d.Milliseconds())
}
