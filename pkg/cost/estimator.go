package cost

import (
	"math/big"
)

// Rounding selects how costs are rounded to six decimals.
type Rounding int

const (
	// RoundHalfUp rounds ties away from zero: 0.0001425 -> 0.000143.
	RoundHalfUp Rounding = iota
	// RoundHalfEven rounds ties to the even neighbour: 0.0001425 -> 0.000142.
	RoundHalfEven
)

// Share of tokens attributed to input and output, in tenths.
const (
	inputTenths  = 7
	outputTenths = 3
)

// microsPerMillionTokens scales micro-USD-per-1M-token prices back to
// micro-USD per token.
const microsPerMillionTokens = 1_000_000

// Estimator computes cost estimates. The zero value rounds half-up.
type Estimator struct {
	Rounding Rounding
}

// Estimate returns the cost in USD of tokens processed by model, assuming
// 70% input and 30% output tokens, rounded to six decimals. Negative token
// counts are treated as zero.
func (e Estimator) Estimate(tokens int, model string) float64 {
	return float64(e.Micros(tokens, model)) / 1e6
}

// Micros returns the rounded cost in micro-USD.
func (e Estimator) Micros(tokens int, model string) int64 {
	if tokens <= 0 {
		return 0
	}
	price, _ := Lookup(model)

	// cost_micros = tokens * (0.7*in + 0.3*out) / 1e6 with prices in micro-USD
	// per 1M tokens, kept as an exact fraction num/den.
	perTenth := big.NewInt(inputTenths*price.inputMicros() + outputTenths*price.outputMicros())
	num := new(big.Int).Mul(big.NewInt(int64(tokens)), perTenth)
	den := big.NewInt(10 * microsPerMillionTokens)

	return e.round(num, den).Int64()
}

// round divides num by den (both non-negative) using the configured mode.
func (e Estimator) round(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	twice := new(big.Int).Lsh(r, 1)

	switch twice.Cmp(den) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if e.Rounding == RoundHalfUp || q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return q
}

var defaultEstimator Estimator

// EstimateCost estimates the USD cost with half-up rounding.
func EstimateCost(tokens int, model string) float64 {
	return defaultEstimator.Estimate(tokens, model)
}
