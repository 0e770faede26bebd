package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formai/pkg/logging"
)

// ErrPageLimit is returned when MaxPages pages are already open.
var ErrPageLimit = errors.New("maximum number of open pages reached")

// ErrClosed is returned after Shutdown.
var ErrClosed = errors.New("browser manager is shut down")

var _ Launcher = (*Manager)(nil)

// Manager owns the Playwright driver and a single Chromium process. Each
// NewPage call gets its own isolated browser context.
type Manager struct {
	opts Options
	log  *logging.Logger

	// start installs and launches the browser; replaced in tests.
	start func() (*playwright.Playwright, playwright.Browser, error)

	mu         sync.Mutex
	playwright *playwright.Playwright
	browser    playwright.Browser
	launching  *launch
	sessions   map[string]*Session
	closed     bool
}

// launch is an in-flight browser start shared by concurrent callers.
type launch struct {
	done chan struct{}
	err  error
}

// NewManager creates a manager. Playwright is started lazily on the first
// NewPage call.
func NewManager(opts Options, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	m := &Manager{
		opts:     opts.withDefaults(),
		log:      log,
		sessions: make(map[string]*Session),
	}
	m.start = m.launchChromium
	return m
}

// Initialize installs (unless skipped) and starts the Playwright driver and
// launches Chromium. It is safe to call more than once.
func (m *Manager) Initialize() error {
	_, err := m.ready(context.Background())
	return err
}

// ready returns the running browser, starting it if needed. The start runs
// without m.mu held; callers stop waiting when ctx is done.
func (m *Manager) ready(ctx context.Context) (playwright.Browser, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.browser != nil {
		b := m.browser
		m.mu.Unlock()
		return b, nil
	}
	l := m.launching
	if l == nil {
		l = &launch{done: make(chan struct{})}
		m.launching = l
		go m.runLaunch(l)
	}
	m.mu.Unlock()

	select {
	case <-l.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if l.err != nil {
		return nil, l.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.browser, nil
}

func (m *Manager) runLaunch(l *launch) {
	pw, b, err := m.start()

	m.mu.Lock()
	m.launching = nil
	switch {
	case err != nil:
		l.err = err
	case m.closed:
		l.err = ErrClosed
	default:
		m.playwright = pw
		m.browser = b
	}
	closed := m.closed
	m.mu.Unlock()

	if err == nil && closed {
		m.log.Warnf("browser started after shutdown, closing it")
		if b != nil {
			_ = b.Close()
		}
		if pw != nil {
			_ = pw.Stop()
		}
	}
	close(l.done)
}

func (m *Manager) launchChromium() (*playwright.Playwright, playwright.Browser, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !m.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := m.opts.Headless
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.log.Infof("chromium launched (headless=%t)", headless)
	return pw, b, nil
}

// NewPage implements Launcher.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := m.ready(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if len(m.sessions) >= m.opts.MaxPages {
		return nil, fmt.Errorf("%w (%d)", ErrPageLimit, m.opts.MaxPages)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
		Locale: playwright.String(m.opts.Locale),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opts.Timeout.Milliseconds()))

	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Context:    bctx,
		Page:       page,
		CreatedAt:  now,
		LastUsedAt: now,
		timeout:    m.opts.Timeout,
		release:    m.release,
	}
	m.sessions[s.ID] = s
	m.log.Debugf("page %s opened (%d open)", s.ID, len(m.sessions))
	return s, nil
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// OpenPages returns the number of pages not yet closed.
func (m *Manager) OpenPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every page, the browser and the Playwright driver. Pages
// are closed without m.mu held so a concurrent Session.Close can finish.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	b, pw := m.browser, m.playwright
	m.browser, m.playwright = nil, nil
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.closeOnly(); err != nil {
			errs = append(errs, err)
		}
	}
	if b != nil {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if pw != nil {
		if err := pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}
