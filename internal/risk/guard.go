// Package risk implements the kill switch that gates new positions.
package risk

import (
	"fmt"
	"sync"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// Config holds the risk limits. Zero values disable the corresponding check.
type Config struct {
	StartingBankroll float64
	MinBankroll      float64 // kill switch
	MaxDrawdownPct   float64 // from peak bankroll
	MaxExposureUSD   float64 // total cost of open positions
	MaxPositionPct   float64 // single proposal as a share of bankroll
}

// DefaultConfig devuelve límites conservadores para un bankroll de 1000 USDC.
func DefaultConfig() Config {
	return Config{
		StartingBankroll: 1000,
		MinBankroll:      500,
		MaxDrawdownPct:   0.30,
		MaxExposureUSD:   300,
		MaxPositionPct:   0.05,
	}
}

// Guard tracks the peak bankroll and whether trading is halted. Safe for concurrent use.
type Guard struct {
	cfg Config

	mu     sync.Mutex
	peak   float64
	halted bool
	reason string
}

// New crea un Guard con el peak inicial en StartingBankroll.
func New(cfg Config) *Guard {
	return &Guard{cfg: cfg, peak: cfg.StartingBankroll}
}

// Observe records the current bankroll and trips the halt when the minimum or the
// drawdown limit is breached. It returns false when trading is halted.
func (g *Guard) Observe(bankroll float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observe(bankroll)
	return !g.halted
}

func (g *Guard) observe(bankroll float64) {
	if bankroll > g.peak {
		g.peak = bankroll
	}
	if g.halted {
		return
	}
	if g.cfg.MinBankroll > 0 && bankroll < g.cfg.MinBankroll {
		g.halt(fmt.Sprintf("bankroll %.2f below minimum %.2f", bankroll, g.cfg.MinBankroll))
		return
	}
	if g.cfg.MaxDrawdownPct > 0 && g.peak > 0 {
		if dd := (g.peak - bankroll) / g.peak; dd > g.cfg.MaxDrawdownPct {
			g.halt(fmt.Sprintf("drawdown %.1f%% exceeds %.1f%% (peak %.2f)",
				dd*100, g.cfg.MaxDrawdownPct*100, g.peak))
		}
	}
}

// Allow decides whether a new position costing proposed USD may be opened given the
// current bankroll and the cost of positions already open.
func (g *Guard) Allow(bankroll, exposure, proposed float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.observe(bankroll)
	if g.halted {
		return fmt.Errorf("risk.Allow: %s: %w", g.reason, domain.ErrRiskHalted)
	}
	if g.cfg.MaxPositionPct > 0 && proposed > bankroll*g.cfg.MaxPositionPct {
		return fmt.Errorf("risk.Allow: size %.2f exceeds %.0f%% of bankroll: %w",
			proposed, g.cfg.MaxPositionPct*100, domain.ErrRiskLimit)
	}
	if g.cfg.MaxExposureUSD > 0 && exposure+proposed > g.cfg.MaxExposureUSD {
		return fmt.Errorf("risk.Allow: exposure %.2f would exceed %.2f: %w",
			exposure+proposed, g.cfg.MaxExposureUSD, domain.ErrRiskLimit)
	}
	return nil
}

// Kill halts trading manually.
func (g *Guard) Kill() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halt("manual kill switch")
}

// Resume clears a halt. The peak is kept.
func (g *Guard) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = false
	g.reason = ""
}

// Status returns whether trading is halted and why.
func (g *Guard) Status() (halted bool, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted, g.reason
}

// Peak devuelve el bankroll máximo observado.
func (g *Guard) Peak() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

func (g *Guard) halt(reason string) {
	g.halted = true
	g.reason = reason
}
