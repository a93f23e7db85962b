// Package lifecycle opens positions and evaluates their stop-loss state on each tick.
//
// Tick is a pure transition: it takes a Position by value and returns the updated
// copy plus a Transition describing what changed. Callers own persistence.
package lifecycle

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// StopConfig holds the stop-loss parameters.
type StopConfig struct {
	FixedStopFraction  float64 // stop when unrealized ≤ -FixedStopFraction
	TrailingActivation float64 // arm the trailing stop at unrealized ≥ this
	TrailingDistance   float64 // absolute price distance below the high-water mark

	// VolatileCategories are exempt from the fixed stop.
	VolatileCategories []domain.Category
}

// DefaultStopConfig: -50% fixed stop, trailing armed at +20% with a 0.20 distance.
func DefaultStopConfig() StopConfig {
	return StopConfig{
		FixedStopFraction:  0.50,
		TrailingActivation: 0.20,
		TrailingDistance:   0.20,
		VolatileCategories: []domain.Category{
			domain.CategorySports,
			domain.CategoryCrypto,
			domain.CategorySocial,
		},
	}
}

// FixedStopApplies reports whether positions of cat use the fixed stop.
func (c StopConfig) FixedStopApplies(cat domain.Category) bool {
	return !slices.Contains(c.VolatileCategories, cat)
}

// eps absorbs float noise in price arithmetic (0.12 vs 0.10 is +19.999...%).
const eps = 1e-9

// Open creates an OPEN position from an accepted signal or ladder leg.
// The entry value is the signal's execution price for its direction.
func Open(ev domain.Event, s domain.Signal, shares float64, ladderID string, now time.Time) domain.Position {
	entry := s.Price
	return domain.Position{
		ID:        uuid.New().String(),
		EventID:   ev.ID,
		EventSlug: ev.Slug,
		BucketID:  s.Bucket.ID,
		Label:     s.Bucket.Label,
		LadderID:  ladderID,
		Category: Classify(ClassifyInput{
			Category: ev.Category,
			Slug:     ev.Slug,
			Question: ev.Title,
		}),
		Side:       s.Direction,
		EntryPrice: entry,
		Shares:     shares,
		Cost:       entry * shares,
		Status:     domain.StatusOpen,
		Stop:       domain.StopState{HighWaterMark: entry},
		EventDate:  ev.EventDate,
		OpenedAt:   now,
	}
}

// Transition records what one tick did to a position.
type Transition struct {
	PositionID  string
	Value       float64 // current value of the position's side
	Unrealized  float64
	HWMRaised   bool
	Activated   bool
	FloorRaised bool
	Stopped     bool
	Reason      domain.ExitReason
	ExitPrice   float64
	RealizedPnL float64
}

// Changed reports whether the stop state or status moved.
func (t Transition) Changed() bool {
	return t.HWMRaised || t.Activated || t.FloorRaised || t.Stopped
}

// Tick evaluates one price observation. affirmativePrice is the bucket's YES price;
// NO positions are valued at 1 - affirmativePrice. Terminal positions come back unchanged.
//
// The trailing stop is checked before the fixed stop: it can only fire after the
// position has been in the money.
func Tick(cfg StopConfig, pos domain.Position, affirmativePrice float64, at time.Time) (domain.Position, Transition) {
	tr := Transition{PositionID: pos.ID}
	if !pos.IsOpen() {
		return pos, tr
	}

	v := pos.Side.ValueOf(affirmativePrice)
	u := pos.UnrealizedFraction(v)
	tr.Value, tr.Unrealized = v, u

	// Never share the floor pointer with the caller's copy.
	st := domain.StopState{
		HighWaterMark:  pos.Stop.HighWaterMark,
		TrailingActive: pos.Stop.TrailingActive,
	}
	if pos.Stop.TrailingFloor != nil {
		f := *pos.Stop.TrailingFloor
		st.TrailingFloor = &f
	}

	if v > st.HighWaterMark {
		st.HighWaterMark = v
		tr.HWMRaised = true
	}

	switch {
	case !st.TrailingActive && u >= cfg.TrailingActivation-eps:
		f := math.Max(pos.EntryPrice, st.HighWaterMark-cfg.TrailingDistance)
		st.TrailingActive = true
		st.TrailingFloor = &f
		tr.Activated = true
	case st.TrailingActive:
		cand := st.HighWaterMark - cfg.TrailingDistance
		switch {
		case st.TrailingFloor == nil:
			f := math.Max(pos.EntryPrice, cand)
			st.TrailingFloor = &f
			tr.FloorRaised = true
		case cand > *st.TrailingFloor:
			*st.TrailingFloor = cand
			tr.FloorRaised = true
		}
	}
	pos.Stop = st

	switch {
	case st.TrailingActive && v <= st.Floor()+eps:
		tr.Reason, tr.ExitPrice = domain.ExitTrailingStop, st.Floor()
	case cfg.FixedStopApplies(pos.Category) && u <= -cfg.FixedStopFraction+eps:
		tr.Reason, tr.ExitPrice = domain.ExitFixedStop, v
	default:
		return pos, tr
	}

	tr.Stopped = true
	tr.RealizedPnL = (tr.ExitPrice - pos.EntryPrice) * pos.Shares
	resolvedAt := at

	pos.Status = domain.StatusStopped
	pos.ExitReason = tr.Reason
	pos.ExitPrice = tr.ExitPrice
	pos.Payout = tr.ExitPrice * pos.Shares
	pos.RealizedPnL = tr.RealizedPnL
	pos.ResolvedAt = &resolvedAt
	return pos, tr
}
