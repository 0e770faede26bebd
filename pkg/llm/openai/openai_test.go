package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formai/pkg/llm"
	"github.com/entrhq/formai/pkg/types"
)

type capturedRequest struct {
	Auth        string
	Model       string
	Temperature float64
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
}

func sseServer(t *testing.T, lines []string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Stream      bool    `json:"stream"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.True(t, body.Stream)
		if captured != nil {
			captured.Auth = r.Header.Get("Authorization")
			captured.Model = body.Model
			captured.Temperature = body.Temperature
			captured.Messages = body.Messages
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider("  ")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewProvider_Defaults(t *testing.T) {
	p, err := NewProvider("key")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModelInfo().Name)
	assert.True(t, p.GetModelInfo().SupportsStreaming)
}

func TestComplete_AccumulatesStream(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, []string{
		": keep-alive",
		`data: {"choices":[{"delta":{"role":"assistant","content":"<action>"}}]}`,
		`data: not json`,
		`data: {"choices":[{"delta":{"content":"done"}}]}`,
		`data: {"choices":[{"delta":{"content":"</action>"},"finish_reason":"stop"}]}`,
		"data: [DONE]",
	}, &captured)

	p, err := NewProvider("secret", WithBaseURL(srv.URL+"/"), WithModel("gemini-1.5-pro-latest"))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("system"),
		types.NewUserMessage("observe"),
		types.NewAssistantMessage("previous"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "<action>done</action>", msg.Content)

	assert.Equal(t, "Bearer secret", captured.Auth)
	assert.Equal(t, "gemini-1.5-pro-latest", captured.Model)
	assert.InDelta(t, DefaultTemperature, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "observe", captured.Messages[1].Content)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
}

func TestStreamCompletion_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProvider("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.StreamCompletion(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCloneWithModel(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, []string{`data: {"choices":[{"delta":{"content":"ok"}}]}`, "data: [DONE]"}, &captured)

	p, err := NewProvider("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	clone := llm.ForModel(p, "gemini-1.5-pro-latest")
	assert.Equal(t, "gemini-1.5-pro-latest", clone.GetModel())
	assert.Equal(t, "gemini-1.5-pro-latest", clone.GetModelInfo().Name)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultModel, p.GetModelInfo().Name)

	_, err = clone.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro-latest", captured.Model)

	assert.Same(t, p, llm.ForModel(p, DefaultModel))
	assert.Same(t, p, llm.ForModel(p, ""))
}
