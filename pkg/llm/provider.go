// Package llm defines the chat-completion capability the form agent drives.
//
// Example usage:
//
//	provider, err := openai.NewProvider(apiKey, openai.WithModel("gemini-1.5-flash-latest"))
//	if err != nil {
//	    return err
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewSystemMessage(systemPrompt),
//	    types.NewUserMessage(observation),
//	})
package llm

import (
	"context"

	"github.com/entrhq/formai/pkg/types"
)

// ModelCloner is implemented by providers that can switch model per call
// without rebuilding their transport. The clone shares credentials with
// the original.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// Provider is a chat-completion backend.
type Provider interface {
	// StreamCompletion streams response chunks for messages. The channel is
	// closed when the response ends. Errors after the stream has started
	// arrive as chunks with Error set; the returned error covers only
	// failures to start the request.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete accumulates a streamed response into one assistant message.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo describes the configured model.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model identifier used for requests.
	GetModel() string
}

// ForModel returns p directed at model. Providers that cannot switch are
// returned unchanged.
func ForModel(p Provider, model string) Provider {
	if model == "" || p.GetModel() == model {
		return p
	}
	if cloner, ok := p.(ModelCloner); ok {
		return cloner.CloneWithModel(model)
	}
	return p
}
