// Package ladder composes adjacent cheap buckets around the forecast peak into one plan.
package ladder

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/alejandrodnm/forecastedge/internal/sizing"
)

// Config controls which buckets become legs and how much they get.
type Config struct {
	Window        int     // buckets considered on each side of the peak
	MaxLegs       int     // hard cap on legs
	Budget        float64 // total USD for the whole ladder
	CheapCeiling  float64 // max affirmative price of a leg
	MinLegUSD     float64 // allocations below this are dropped
	MinShares     float64 // exchange minimum order; a leg that cannot afford it is skipped. 0 disables
	MinLadderEdge float64
	MinConfidence float64
	Sizing        sizing.Config
}

// DefaultConfig returns the standard ±2 window, 5-leg ladder.
func DefaultConfig() Config {
	return Config{
		Window:        2,
		MaxLegs:       5,
		Budget:        10,
		CheapCeiling:  0.20,
		MinLegUSD:     0.50,
		MinShares:     5,
		MinLadderEdge: 0.05,
		MinConfidence: 0.30,
		Sizing:        sizing.DefaultConfig(),
	}
}

// minLegs below which a ladder gives no diversification.
const minLegs = 2

// Builder builds LadderPlans.
type Builder struct {
	cfg Config
}

// New crea un Builder.
func New(cfg Config) *Builder {
	if cfg.MaxLegs <= 0 {
		cfg.MaxLegs = DefaultConfig().MaxLegs
	}
	if cfg.Window < 0 {
		cfg.Window = 0
	}
	return &Builder{cfg: cfg}
}

// Build returns a plan for the event, or nil when fewer than two legs qualify.
// signals must hold one entry per bucket of the event.
func (b *Builder) Build(eventID string, signals []domain.Signal, bankroll float64, now time.Time) *domain.LadderPlan {
	if len(signals) < minLegs || b.cfg.Budget <= 0 {
		return nil
	}
	sorted := make([]domain.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bucket.Midpoint() < sorted[j].Bucket.Midpoint()
	})

	peak := 0
	for i, s := range sorted {
		if s.Probability > sorted[peak].Probability {
			peak = i
		}
	}
	from := max(0, peak-b.cfg.Window)
	to := min(len(sorted)-1, peak+b.cfg.Window)

	perLeg := b.cfg.Budget / float64(b.cfg.MaxLegs)
	var legs []domain.LadderLeg
	total := 0.0
	for i := from; i <= to; i++ {
		s := sorted[i]
		if !b.qualifies(s) {
			continue
		}
		alloc := math.Min(sizing.Kelly(b.cfg.Sizing, s.EdgeYes, s.Confidence, s.Bucket.PriceYes, bankroll), perLeg)
		if alloc < b.cfg.MinLegUSD || alloc <= 0 {
			continue
		}
		// El tamaño nunca pasa de perLeg: si el mínimo no cabe, fuera.
		if b.cfg.MinShares*s.Bucket.PriceYes > alloc {
			continue
		}
		if total+alloc > b.cfg.Budget || len(legs) == b.cfg.MaxLegs {
			break
		}

		leg := s
		leg.Direction, leg.Price, leg.Edge = domain.SideYes, s.Bucket.PriceYes, s.EdgeYes
		legs = append(legs, domain.LadderLeg{Signal: leg, SizeUSD: alloc, Shares: sizing.Shares(alloc, s.Bucket.PriceYes)})
		total += alloc
	}
	if len(legs) < minLegs {
		return nil
	}

	return &domain.LadderPlan{
		ID:        uuid.New().String(),
		EventID:   eventID,
		PeakIndex: peak,
		Legs:      legs,
		TotalCost: total,
		Budget:    b.cfg.Budget,
		CreatedAt: now,
	}
}

func (b *Builder) qualifies(s domain.Signal) bool {
	p := s.Bucket.PriceYes
	return s.EdgeYes >= b.cfg.MinLadderEdge &&
		s.Confidence >= b.cfg.MinConfidence &&
		p > 0 && p <= b.cfg.CheapCeiling
}
