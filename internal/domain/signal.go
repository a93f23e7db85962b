package domain

import "time"

// Verdict classifies a bucket after edge detection.
type Verdict string

const (
	VerdictTrade  Verdict = "TRADE"  // passes the standalone threshold
	VerdictLadder Verdict = "LADDER" // passes only the looser ladder-leg threshold
	VerdictFair   Verdict = "FAIR"   // no signal
)

// Signal is the comparison of one bucket's model probability against its price.
// Ephemeral: recomputed every scan, persisted only for observability.
type Signal struct {
	EventID     string
	Bucket      Bucket
	Probability float64
	EdgeYes     float64 // p - PriceYes
	EdgeNo      float64 // (1 - p) - PriceNo
	Direction   Side
	Price       float64 // execution price of Direction
	Edge        float64 // edge of Direction
	Confidence  float64
	Verdict     Verdict
	CreatedAt   time.Time
}

// Actionable devuelve true si el bucket no es FAIR.
func (s Signal) Actionable() bool {
	return s.Verdict == VerdictTrade || s.Verdict == VerdictLadder
}

// AlertKind is the direction of a structural mispricing.
type AlertKind string

const (
	AlertOverpriced  AlertKind = "OVERPRICED"  // every bucket jointly overpriced: sell-all equivalent
	AlertUnderpriced AlertKind = "UNDERPRICED" // jointly underpriced: buy-cheap equivalent
)

// StructuralAlert is raised when the affirmative prices of a tiled event do not sum to 1.
type StructuralAlert struct {
	EventID   string
	Sum       float64
	Deviation float64 // Sum - 1
	Kind      AlertKind
}

// LadderLeg is one bucket of a LadderPlan with its allocation.
type LadderLeg struct {
	Signal  Signal
	SizeUSD float64
	Shares  float64
}

// LadderPlan is a budget-capped set of 2–5 adjacent legs around the peak bucket.
// Immutable after construction.
type LadderPlan struct {
	ID        string
	EventID   string
	PeakIndex int
	Legs      []LadderLeg
	TotalCost float64
	Budget    float64
	CreatedAt time.Time
}

// ScanReport es el resultado de evaluar un evento en un ciclo.
type ScanReport struct {
	Event        Event
	Distribution ForecastDistribution
	Signals      []Signal
	Alert        *StructuralAlert
	Ladder       *LadderPlan
	Opened       []Position
	Err          error // set when the event was skipped
}
