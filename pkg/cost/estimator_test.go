package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formai/pkg/agent"
	"github.com/entrhq/formai/pkg/types"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name   string
		tokens int
		model  string
		want   float64
	}{
		{"flash rounds half up", 1000, "gemini-1.5-flash-latest", 0.000143},
		{"pro", 1000, "gemini-1.5-pro-latest", 0.002375},
		{"flash-8b is cheaper than flash", 1000, "gemini-1.5-flash-8b", 0.000071},
		{"haiku", 1000, "claude-3-haiku-20240307", 0.000550},
		{"sonnet", 1000, "claude-3-5-sonnet", 0.006600},
		{"case-insensitive", 1000, "GEMINI-1.5-FLASH", 0.000143},
		{"unknown model falls back to pro", 1000, "mystery-model", 0.002375},
		{"zero tokens", 0, "gemini-1.5-flash", 0},
		{"negative tokens", -5, "gemini-1.5-pro", 0},
		{"large count", 2_000_000, "gemini-1.5-pro", 4.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateCost(tt.tokens, tt.model))
		})
	}
}

func TestEstimator_HalfEven(t *testing.T) {
	e := Estimator{Rounding: RoundHalfEven}
	assert.Equal(t, 0.000142, e.Estimate(1000, "gemini-1.5-flash"))
	// 3000 flash tokens cost exactly 427.5 micro-USD: the even neighbour is 428
	assert.Equal(t, 0.000428, e.Estimate(3000, "gemini-1.5-flash"))
	assert.Equal(t, 0.000428, Estimator{}.Estimate(3000, "gemini-1.5-flash"))
}

func TestEstimateCost_Deterministic(t *testing.T) {
	first := EstimateCost(1234, "gemini-1.5-pro")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EstimateCost(1234, "gemini-1.5-pro"))
	}
}

func TestEstimateCost_NonNegativeAndMonotonic(t *testing.T) {
	prev := 0.0
	for tokens := 0; tokens <= 10_000; tokens += 250 {
		c := EstimateCost(tokens, "gemini-1.5-flash")
		assert.GreaterOrEqual(t, c, 0.0)
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("gemini-1.5-flash-8b-latest")
	require.True(t, ok)
	assert.Equal(t, "flash-8b", p.Match)
	assert.Equal(t, TierCheap, p.Tier)

	p, ok = Lookup("claude-3-5-sonnet")
	require.True(t, ok)
	assert.Equal(t, TierPremium, p.Tier)

	p, ok = Lookup("gpt-4o")
	assert.False(t, ok)
	assert.Equal(t, "pro", p.Match)
}

func TestFixedTokens(t *testing.T) {
	assert.Equal(t, 1000, FixedTokens{}.EstimateTokens(nil))
	assert.Equal(t, 1000, FixedTokens{}.EstimateTokens(&agent.Result{Text: "anything"}))
}

func TestTiktokenTokens(t *testing.T) {
	var nilEstimator *TiktokenTokens
	assert.Equal(t, DefaultTokens, nilEstimator.EstimateTokens(&agent.Result{}))

	est, err := NewTiktokenTokens()
	require.NotNil(t, est)
	assert.Equal(t, DefaultTokens, est.EstimateTokens(nil))
	assert.Equal(t, DefaultTokens, est.EstimateTokens(&agent.Result{}))
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}

	got := est.EstimateTokens(&agent.Result{Transcript: []*types.Message{
		types.NewSystemMessage("You fill in web forms."),
		types.NewUserMessage("お問い合わせフォームに入力してください"),
	}})
	assert.Greater(t, got, 0)
	assert.NotEqual(t, DefaultTokens, got)
}
