// Package sizing converts an edge into a bounded dollar allocation via fractional Kelly.
package sizing

import "math"

// Config holds the Kelly fraction and the two hard caps.
type Config struct {
	KellyFraction  float64 // e.g. 0.25 = quarter Kelly
	MaxTradeUSD    float64 // absolute per-trade cap
	MaxBankrollPct float64 // per-trade cap as a share of bankroll
}

// DefaultConfig devuelve quarter-Kelly con caps conservadores.
func DefaultConfig() Config {
	return Config{
		KellyFraction:  0.25,
		MaxTradeUSD:    10,
		MaxBankrollPct: 0.05,
	}
}

// Kelly returns the USD allocation for a bet of the given edge at price.
// Degenerate inputs (edge ≤ 0, price outside (0,1), no bankroll) yield 0.
func Kelly(cfg Config, edge, confidence, price, bankroll float64) float64 {
	if !(edge > 0) || !(price > 0 && price < 1) || !(bankroll > 0) || !(confidence > 0) {
		return 0
	}
	confidence = math.Min(confidence, 1)

	kelly := edge * confidence / (1 - price)
	size := kelly * cfg.KellyFraction * bankroll

	limit := math.Min(cfg.MaxTradeUSD, bankroll*cfg.MaxBankrollPct)
	if math.IsNaN(size) || size <= 0 || !(limit > 0) {
		return 0
	}
	return math.Min(size, limit)
}

// Shares returns how many shares sizeUSD buys at price.
func Shares(sizeUSD, price float64) float64 {
	if !(price > 0) || !(sizeUSD > 0) {
		return 0
	}
	return sizeUSD / price
}
