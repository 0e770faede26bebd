package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowPage struct {
	playwright.Page
	delay  time.Duration
	closes atomic.Int32
}

func (p *slowPage) Close(...playwright.PageCloseOptions) error {
	time.Sleep(p.delay)
	p.closes.Add(1)
	return nil
}

type stubContext struct {
	playwright.BrowserContext
}

func (stubContext) Close(...playwright.BrowserContextCloseOptions) error { return nil }

type stubBrowser struct {
	playwright.Browser
	closed atomic.Bool
}

func (b *stubBrowser) Close(...playwright.BrowserCloseOptions) error {
	b.closed.Store(true)
	return nil
}

func addSession(m *Manager, id string, page playwright.Page) *Session {
	s := &Session{ID: id, Page: page, Context: stubContext{}, release: m.release}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

func TestManager_ShutdownWhileSessionClosing(t *testing.T) {
	m := NewManager(Options{}, nil)
	page := &slowPage{delay: 200 * time.Millisecond}
	s := addSession(m, "a", page)
	other := &slowPage{}
	addSession(m, "b", other)

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	time.Sleep(50 * time.Millisecond)

	shutdown := make(chan error, 1)
	go func() { shutdown <- m.Shutdown() }()

	for _, ch := range []chan error{closed, shutdown} {
		select {
		case err := <-ch:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("close and shutdown did not both return")
		}
	}

	assert.Equal(t, int32(1), page.closes.Load())
	assert.Equal(t, int32(1), other.closes.Load())
	assert.Equal(t, 0, m.OpenPages())
	assert.NoError(t, s.Close())
}

func TestManager_NewPageStopsWaitingOnContext(t *testing.T) {
	m := NewManager(Options{}, nil)
	unblock := make(chan struct{})
	b := &stubBrowser{}
	var starts atomic.Int32
	m.start = func() (*playwright.Playwright, playwright.Browser, error) {
		starts.Add(1)
		<-unblock
		return nil, b, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := m.NewPage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The launch in flight does not hold the manager lock.
	assert.Equal(t, 0, m.OpenPages())

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = m.NewPage(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), starts.Load(), "concurrent callers share one launch")

	require.NoError(t, m.Shutdown())
	close(unblock)

	assert.Eventually(t, b.closed.Load, time.Second, 10*time.Millisecond,
		"browser started after shutdown is closed")
	assert.ErrorIs(t, m.Initialize(), ErrClosed)
}

func TestManager_LaunchFailureIsRetried(t *testing.T) {
	m := NewManager(Options{}, nil)
	boom := errors.New("no chromium")
	b := &stubBrowser{}
	var starts atomic.Int32
	m.start = func() (*playwright.Playwright, playwright.Browser, error) {
		if starts.Add(1) == 1 {
			return nil, nil, boom
		}
		return nil, b, nil
	}

	assert.ErrorIs(t, m.Initialize(), boom)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Initialize())
	assert.Equal(t, int32(2), starts.Load())

	require.NoError(t, m.Shutdown())
	assert.True(t, b.closed.Load())
	require.NoError(t, m.Shutdown())
}

func TestManager_NewPageAfterShutdown(t *testing.T) {
	m := NewManager(Options{}, nil)
	require.NoError(t, m.Shutdown())

	_, err := m.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
