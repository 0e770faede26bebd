package cost

import (
	"github.com/entrhq/formai/pkg/agent"
	"github.com/entrhq/formai/pkg/llm/tokenizer"
)

// DefaultTokens is reported when a run's usage cannot be measured.
const DefaultTokens = 1000

// TokenEstimator reports how many tokens an automation run consumed.
type TokenEstimator interface {
	EstimateTokens(result *agent.Result) int
}

// FixedTokens reports DefaultTokens for every run.
type FixedTokens struct{}

// EstimateTokens implements TokenEstimator.
func (FixedTokens) EstimateTokens(*agent.Result) int { return DefaultTokens }

// TiktokenTokens counts the tokens of the run's transcript.
type TiktokenTokens struct {
	tok *tokenizer.Tokenizer
}

// NewTiktokenTokens builds a counting estimator. When the tokenizer cannot
// be loaded the estimator still works and reports DefaultTokens.
func NewTiktokenTokens() (*TiktokenTokens, error) {
	tok, err := tokenizer.New()
	if err != nil {
		return &TiktokenTokens{}, err
	}
	return &TiktokenTokens{tok: tok}, nil
}

// EstimateTokens implements TokenEstimator.
func (t *TiktokenTokens) EstimateTokens(result *agent.Result) int {
	if t == nil || t.tok == nil || result == nil || len(result.Transcript) == 0 {
		return DefaultTokens
	}
	return t.tok.CountMessagesTokens(result.Transcript)
}
