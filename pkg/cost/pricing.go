// Package cost estimates the monetary cost of an automation run from its
// token count and the model that served it.
package cost

import (
	"math"
	"strings"
)

// Tier groups models by price class.
type Tier string

const (
	TierCheap   Tier = "cheap"
	TierPremium Tier = "premium"
)

// Price is the per-million-token price of a model family in USD.
type Price struct {
	// Match is a lower-case substring of the model identifier.
	Match  string
	Tier   Tier
	Input  float64
	Output float64
}

// inputMicros returns the input price in micro-USD per million tokens.
func (p Price) inputMicros() int64 { return int64(math.Round(p.Input * 1e6)) }

// outputMicros returns the output price in micro-USD per million tokens.
func (p Price) outputMicros() int64 { return int64(math.Round(p.Output * 1e6)) }

// Prices is consulted top to bottom; the first Match contained in the model
// id wins, so more specific families come first.
var Prices = []Price{
	{Match: "flash-8b", Tier: TierCheap, Input: 0.0375, Output: 0.15},
	{Match: "flash", Tier: TierCheap, Input: 0.075, Output: 0.30},
	{Match: "haiku", Tier: TierCheap, Input: 0.25, Output: 1.25},
	{Match: "sonnet", Tier: TierPremium, Input: 3.00, Output: 15.00},
	{Match: "pro", Tier: TierPremium, Input: 1.25, Output: 5.00},
}

// fallbackPrice applies to model ids no row matches.
var fallbackPrice = Prices[len(Prices)-1]

// Lookup returns the price row for model and whether it matched a row
// directly rather than falling back to the premium default.
func Lookup(model string) (Price, bool) {
	id := strings.ToLower(model)
	for _, p := range Prices {
		if strings.Contains(id, p.Match) {
			return p, true
		}
	}
	return fallbackPrice, false
}
