// Package signal compares bucket probabilities with market prices.
package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// Config holds the detector thresholds.
type Config struct {
	MinEdge       float64 // standalone single-leg signals
	MinLadderEdge float64 // looser bar for ladder-leg candidates
	MinConfidence float64
	MinPrice      float64 // below this the side is dust
	MaxPrice      float64 // above this the side is already decided
	MinDepth      float64 // 0 disables the liquidity floor

	// StructuralThreshold is the |Σprice - 1| above which an event raises an alert.
	StructuralThreshold float64
}

// DefaultConfig returns conservative thresholds.
func DefaultConfig() Config {
	return Config{
		MinEdge:             0.08,
		MinLadderEdge:       0.05,
		MinConfidence:       0.30,
		MinPrice:            0.01,
		MaxPrice:            0.99,
		StructuralThreshold: 0.05,
	}
}

// Detector classifies buckets as TRADE, LADDER or FAIR.
type Detector struct {
	cfg Config
}

// New crea un Detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Evaluate builds the Signal for one bucket. FAIR buckets still return a Signal
// (with Verdict FAIR) so callers keep bucket adjacency.
func (d *Detector) Evaluate(eventID string, bp domain.BucketProbability, confidence float64, now time.Time) domain.Signal {
	b := bp.Bucket
	s := domain.Signal{
		EventID:     eventID,
		Bucket:      b,
		Probability: bp.Probability,
		EdgeYes:     bp.Probability - b.PriceYes,
		EdgeNo:      (1 - bp.Probability) - b.PriceNo,
		Direction:   domain.SideYes,
		Price:       b.PriceYes,
		Confidence:  confidence,
		Verdict:     domain.VerdictFair,
		CreatedAt:   now,
	}
	s.Edge = s.EdgeYes

	yesOK := d.tradeable(b.PriceYes)
	noOK := d.tradeable(b.PriceNo)
	switch {
	case noOK && (!yesOK || s.EdgeNo > s.EdgeYes):
		s.Direction, s.Price, s.Edge = domain.SideNo, b.PriceNo, s.EdgeNo
	case !yesOK:
		return s
	}

	if confidence < d.cfg.MinConfidence {
		return s
	}
	if d.cfg.MinDepth > 0 && b.Depth < d.cfg.MinDepth {
		return s
	}
	switch {
	case s.Edge >= d.cfg.MinEdge:
		s.Verdict = domain.VerdictTrade
	case s.Edge >= d.cfg.MinLadderEdge:
		s.Verdict = domain.VerdictLadder
	}
	return s
}

// EvaluateEvent returns one Signal per bucket probability, in the same order.
func (d *Detector) EvaluateEvent(eventID string, probs []domain.BucketProbability, confidence float64, now time.Time) []domain.Signal {
	out := make([]domain.Signal, 0, len(probs))
	for _, bp := range probs {
		out = append(out, d.Evaluate(eventID, bp, confidence, now))
	}
	return out
}

// CheckStructure sums the affirmative prices of a tiled event. It returns nil when the
// deviation is within the threshold and ErrNotTiled when the buckets don't cover the line.
func (d *Detector) CheckStructure(ev domain.Event) (*domain.StructuralAlert, error) {
	if err := domain.CheckTiling(ev.Buckets); err != nil {
		return nil, fmt.Errorf("signal.CheckStructure %s: %w", ev.Slug, err)
	}
	sum := 0.0
	for _, b := range ev.Buckets {
		sum += b.PriceYes
	}
	dev := sum - 1
	if math.Abs(dev) <= d.cfg.StructuralThreshold {
		return nil, nil
	}
	kind := domain.AlertOverpriced
	if dev < 0 {
		kind = domain.AlertUnderpriced
	}
	return &domain.StructuralAlert{EventID: ev.ID, Sum: sum, Deviation: dev, Kind: kind}, nil
}

func (d *Detector) tradeable(price float64) bool {
	return price >= d.cfg.MinPrice && price <= d.cfg.MaxPrice
}
