// Package tokenizer counts tokens on the client side with tiktoken so runs
// can be measured without relying on provider usage reports.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/formai/pkg/types"
)

// DefaultEncoding is used for every model. Gemini does not publish a BPE
// vocabulary, so counts are an approximation.
const DefaultEncoding = "cl100k_base"

// Per-message overhead in the chat format.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding. It fails when the BPE ranks cannot be
// loaded, e.g. offline without a cached vocabulary.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding loads a named tiktoken encoding.
func NewWithEncoding(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the tokens a chat request with messages would
// consume, including the per-message framing.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		total += tokensPerMessage
		total += t.CountTokens(string(msg.Role))
		total += t.CountTokens(msg.Content)
	}
	if total > 0 {
		total += tokensPerReply
	}
	return total
}
