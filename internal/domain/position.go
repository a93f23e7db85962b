package domain

import "time"

// PositionStatus represents the lifecycle of a paper position.
type PositionStatus string

const (
	StatusOpen    PositionStatus = "OPEN"
	StatusWon     PositionStatus = "WON"
	StatusLost    PositionStatus = "LOST"
	StatusStopped PositionStatus = "STOPPED"
)

// IsTerminal devuelve true para WON, LOST y STOPPED.
func (s PositionStatus) IsTerminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusStopped
}

// Side is the side of the bucket a position holds.
type Side string

const (
	SideYes Side = "YES" // affirmative: value = price
	SideNo  Side = "NO"  // negated: value = 1 - affirmative price
)

// ValueOf converts an affirmative price into the value of this side.
func (s Side) ValueOf(affirmativePrice float64) float64 {
	if s == SideNo {
		return 1 - affirmativePrice
	}
	return affirmativePrice
}

// ExitReason explains how a position reached its terminal status.
type ExitReason string

const (
	ExitNone         ExitReason = ""
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitFixedStop    ExitReason = "FIXED_STOP"
	ExitResolvedWin  ExitReason = "RESOLVED_WIN"
	ExitResolvedLoss ExitReason = "RESOLVED_LOSS"
)

// StopState is the mutable stop-loss bookkeeping of an OPEN position.
// HighWaterMark and TrailingFloor only ratchet up; TrailingActive only goes false → true.
type StopState struct {
	HighWaterMark  float64  `json:"high_water_mark"`
	TrailingActive bool     `json:"trailing_active"`
	TrailingFloor  *float64 `json:"trailing_floor,omitempty"`
}

// Floor returns the trailing floor, or 0 when trailing is not active yet.
func (s StopState) Floor() float64 {
	if s.TrailingFloor == nil {
		return 0
	}
	return *s.TrailingFloor
}

// Position is a paper trade opened from a Signal or a ladder leg.
type Position struct {
	ID          string
	EventID     string
	EventSlug   string
	BucketID    string
	Label       string
	LadderID    string // empty for single-leg positions
	Category    Category
	Side        Side
	EntryPrice  float64 // entry value of Side
	Shares      float64
	Cost        float64 // USDC spent: EntryPrice × Shares
	Status      PositionStatus
	Stop        StopState
	ExitPrice   float64
	ExitReason  ExitReason
	Payout      float64
	RealizedPnL float64
	EventDate   time.Time
	OpenedAt    time.Time
	ResolvedAt  *time.Time
}

// IsOpen devuelve true mientras la posición no es terminal.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// UnrealizedFraction returns (current - entry) / entry for the given side value.
func (p Position) UnrealizedFraction(currentValue float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (currentValue - p.EntryPrice) / p.EntryPrice
}
