package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formai/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixedClock returns successive timestamps one second apart.
func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func outcomeFor(id string, status types.SubmissionStatus) *types.SubmissionOutcome {
	tokens := 1000
	cost := 0.000143
	return &types.SubmissionOutcome{
		RequestID:    id,
		Status:       status,
		URL:          "https://example.com/contact/" + id,
		Message:      "Submitted message: hello...",
		Details:      "フォーム送信が完了しました",
		TokensUsed:   &tokens,
		CostEstimate: &cost,
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		s, err := Open(dir, DefaultOptions())
		require.NoError(t, err)
		defer s.Close()

		_, err = os.Stat(filepath.Join(dir, FileName))
		assert.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, FileName), s.Path())
	})

	t.Run("missing database without create", func(t *testing.T) {
		_, err := Open(t.TempDir(), Options{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reopens existing database", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		require.NoError(t, err)
		_, err = s.Record(context.Background(), outcomeFor("r1", types.StatusSuccess), "gemini-1.5-flash-latest")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		s, err = Open(dir, Options{})
		require.NoError(t, err)
		defer s.Close()
		entries, err := s.Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s.now = fixedClock(start)

	_, err := s.Record(ctx, outcomeFor("r1", types.StatusSuccess), "gemini-1.5-flash-latest")
	require.NoError(t, err)

	timeout := &types.SubmissionOutcome{
		RequestID: "r2",
		Status:    types.StatusTimeout,
		URL:       "https://slow.example.com",
		Message:   "Request timed out",
		Details:   "ページの読み込みがタイムアウトしました",
	}
	_, err = s.Record(ctx, timeout, "gemini-1.5-pro-latest")
	require.NoError(t, err)

	captcha := outcomeFor("r3", types.StatusSuccess)
	captcha.CaptchaDetected = true
	_, err = s.Record(ctx, captcha, "gemini-1.5-flash-latest")
	require.NoError(t, err)

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "r3", entries[0].Outcome.RequestID)
	assert.True(t, entries[0].Outcome.CaptchaDetected)
	require.NotNil(t, entries[0].Outcome.TokensUsed)
	assert.Equal(t, 1000, *entries[0].Outcome.TokensUsed)
	require.NotNil(t, entries[0].Outcome.CostEstimate)
	assert.InDelta(t, 0.000143, *entries[0].Outcome.CostEstimate, 1e-12)
	assert.True(t, entries[0].CreatedAt.Equal(start.Add(2*time.Second)))

	assert.Equal(t, "r2", entries[1].Outcome.RequestID)
	assert.Equal(t, types.StatusTimeout, entries[1].Outcome.Status)
	assert.Equal(t, "gemini-1.5-pro-latest", entries[1].Model)
	assert.Nil(t, entries[1].Outcome.TokensUsed)
	assert.Nil(t, entries[1].Outcome.CostEstimate)
	assert.Nil(t, entries[1].Outcome.ScreenshotPath)

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[types.StatusSuccess])
	assert.Equal(t, 1, counts[types.StatusTimeout])
}

func TestRecent_Limits(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	s.now = fixedClock(time.Unix(0, 0))

	for i := 0; i < DefaultLimit+5; i++ {
		_, err := s.Record(ctx, outcomeFor("r", types.StatusSuccess), "m")
		require.NoError(t, err)
	}

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultLimit)

	entries, err = s.Recent(ctx, MaxLimit+100)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultLimit+5)
}

func TestRecord_Nil(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Record(context.Background(), nil, "m")
	assert.Error(t, err)
}

func TestReports(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.Local)
	entries := []Entry{
		{ID: 2, CreatedAt: created, Model: "gemini-1.5-flash-latest", Outcome: *outcomeFor("r2", types.StatusSuccess)},
		{ID: 1, CreatedAt: created, Model: "gemini-1.5-pro-latest", Outcome: types.SubmissionOutcome{
			Status: types.StatusError, URL: "https://broken.example.com", Message: "Error: boom",
		}},
	}

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMarkdown(&buf, entries))
		out := buf.String()
		assert.Contains(t, out, "# Submission History")
		assert.Contains(t, out, "https://example.com/contact/r2")
		assert.Contains(t, out, "✅ success")
		assert.Contains(t, out, "❌ error")
		assert.Contains(t, out, "0.000143")
		assert.Contains(t, out, "## Summary")
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, entries))
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), "Status")
		assert.Contains(t, string(lines[1]), "2026-10-01 09:30:00")
		assert.Contains(t, string(lines[2]), "error")
		assert.Contains(t, string(lines[2]), "-")
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, nil))
		assert.Equal(t, "No submissions recorded.\n", buf.String())

		buf.Reset()
		require.NoError(t, WriteMarkdown(&buf, nil))
		assert.Contains(t, buf.String(), "No submissions recorded.")
	})
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "あいう...", truncateString("あいうえおかきくけこさ", 6))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
