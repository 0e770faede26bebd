package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

var _ Page = (*Session)(nil)

// Session is a Page backed by its own Playwright browser context.
type Session struct {
	ID      string
	Context playwright.BrowserContext
	Page    playwright.Page

	CreatedAt  time.Time
	LastUsedAt time.Time

	timeout   time.Duration
	release   func(id string)
	closeOnce sync.Once
}

// OpError describes a failed page operation.
type OpError struct {
	Op       string
	Selector string
	Err      error
}

func (e *OpError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("%s %q failed: %v", e.Op, e.Selector, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Timeout reports whether the operation ran out of time.
func (e *OpError) Timeout() bool {
	return errors.Is(e.Err, playwright.ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded)
}

// begin checks ctx and stamps the session as used.
func (s *Session) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.LastUsedAt = time.Now()
	return nil
}

func (s *Session) timeoutFor(ctx context.Context) *float64 {
	return playwright.Float(timeoutMillis(ctx, s.timeout))
}

// opErr wraps err, preferring the context error once ctx is done so callers
// see a deadline rather than a Playwright timeout.
func opErr(ctx context.Context, op, selector string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &OpError{Op: op, Selector: selector, Err: err}
}

// Navigate loads url and waits for the DOM to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   s.timeoutFor(ctx),
	})
	if err != nil {
		return opErr(ctx, "navigate", "", err)
	}
	return nil
}

// HTML returns the serialized DOM of the main frame.
func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := s.begin(ctx); err != nil {
		return "", err
	}
	content, err := s.Page.Content()
	if err != nil {
		return "", opErr(ctx, "content", "", err)
	}
	return content, nil
}

// Text returns the rendered text of the page body.
func (s *Session) Text(ctx context.Context) (string, error) {
	if err := s.begin(ctx); err != nil {
		return "", err
	}
	text, err := s.Page.InnerText("body", playwright.PageInnerTextOptions{
		Timeout: s.timeoutFor(ctx),
	})
	if err != nil {
		return "", opErr(ctx, "text", "body", err)
	}
	return text, nil
}

// Fill types value into the input matched by selector.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	err := s.Page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: s.timeoutFor(ctx),
	})
	if err != nil {
		return opErr(ctx, "fill", selector, err)
	}
	return nil
}

// Click clicks the element matched by selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	err := s.Page.Click(selector, playwright.PageClickOptions{
		Timeout: s.timeoutFor(ctx),
	})
	if err != nil {
		return opErr(ctx, "click", selector, err)
	}
	return nil
}

// Select chooses the option whose value or label equals value.
func (s *Session) Select(ctx context.Context, selector, value string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	opts := playwright.PageSelectOptionOptions{Timeout: s.timeoutFor(ctx)}
	selected, err := s.Page.SelectOption(selector, playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	}, opts)
	if err == nil && len(selected) == 0 {
		selected, err = s.Page.SelectOption(selector, playwright.SelectOptionValues{
			Labels: playwright.StringSlice(value),
		}, opts)
	}
	if err != nil {
		return opErr(ctx, "select", selector, err)
	}
	if len(selected) == 0 {
		return &OpError{Op: "select", Selector: selector, Err: fmt.Errorf("no option %q", value)}
	}
	return nil
}

// WaitFor waits until selector is visible.
func (s *Session) WaitFor(ctx context.Context, selector string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	_, err := s.Page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: s.timeoutFor(ctx),
	})
	if err != nil {
		return opErr(ctx, "wait", selector, err)
	}
	return nil
}

// FrameURLs lists the URLs of every frame, including the main frame.
func (s *Session) FrameURLs() []string {
	frames := s.Page.Frames()
	urls := make([]string, 0, len(frames))
	for _, f := range frames {
		urls = append(urls, f.URL())
	}
	return urls
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Close closes the page and its browser context and returns the slot to
// the manager. Safe to call twice.
func (s *Session) Close() error {
	err := s.closeOnly()
	if s.release != nil {
		s.release(s.ID)
	}
	return err
}

// closeOnly closes the Playwright resources once; later calls return nil.
func (s *Session) closeOnly() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.closeResources()
	})
	return err
}

func (s *Session) closeResources() error {
	pageErr := s.Page.Close()
	ctxErr := s.Context.Close()
	return errors.Join(pageErr, ctxErr)
}
