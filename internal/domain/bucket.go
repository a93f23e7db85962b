package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Outcome is the ground-truth result of a bucket once its market resolves.
type Outcome string

const (
	OutcomeUnresolved Outcome = ""
	OutcomeYes        Outcome = "YES"
	OutcomeNo         Outcome = "NO"
)

// Bucket is one mutually-exclusive outcome slice of an event: value in [Low, High).
// Open-ended slices use -Inf / +Inf for the missing bound.
type Bucket struct {
	ID       string // market condition ID
	Label    string // e.g. "78-79°F"
	Low      float64
	High     float64
	PriceYes float64 // cost to buy the affirmative side
	PriceNo  float64 // cost to buy the negated side
	Depth    float64 // available liquidity in USDC
	Outcome  Outcome
}

// Validate devuelve ErrInvalidBucketRange si el rango es degenerado.
func (b Bucket) Validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || b.High <= b.Low {
		return fmt.Errorf("bucket %q [%v, %v): %w", b.Label, b.Low, b.High, ErrInvalidBucketRange)
	}
	return nil
}

// Contains reports whether v falls inside [Low, High).
func (b Bucket) Contains(v float64) bool {
	return v >= b.Low && v < b.High
}

// IsOpenEnded devuelve true para los buckets "≤ X" o "≥ X".
func (b Bucket) IsOpenEnded() bool {
	return math.IsInf(b.Low, -1) || math.IsInf(b.High, 1)
}

// Midpoint is used to order buckets. Open-ended buckets use their finite bound.
func (b Bucket) Midpoint() float64 {
	switch {
	case math.IsInf(b.Low, -1) && math.IsInf(b.High, 1):
		return 0
	case math.IsInf(b.Low, -1):
		return b.High
	case math.IsInf(b.High, 1):
		return b.Low
	}
	return (b.Low + b.High) / 2
}

// Event groups the buckets of one market event (e.g. "Highest temperature in NYC on Oct 20").
type Event struct {
	ID          string
	Slug        string
	Title       string
	Category    string // raw category text from the market source
	Location    string
	EventDate   time.Time
	EndDate     time.Time
	Granularity float64 // resolution rounding step (1 = whole degrees)
	Closed      bool
	Buckets     []Bucket
}

// HoursToResolution devuelve las horas hasta EndDate, nunca negativas.
func (e Event) HoursToResolution(now time.Time) float64 {
	if e.EndDate.IsZero() {
		return 0
	}
	h := e.EndDate.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Bucket returns the bucket with the given ID.
func (e Event) Bucket(id string) (Bucket, bool) {
	for _, b := range e.Buckets {
		if b.ID == id {
			return b, true
		}
	}
	return Bucket{}, false
}

// SortBuckets returns a copy of buckets ordered by midpoint ascending.
func SortBuckets(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Midpoint() < out[j].Midpoint()
	})
	return out
}

// CheckTiling verifies that the buckets cover (-Inf, +Inf) with no gaps or overlaps.
func CheckTiling(buckets []Bucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("no buckets: %w", ErrNotTiled)
	}
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	for _, b := range sorted {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	if !math.IsInf(sorted[0].Low, -1) {
		return fmt.Errorf("lowest bucket starts at %v: %w", sorted[0].Low, ErrNotTiled)
	}
	if last := sorted[len(sorted)-1]; !math.IsInf(last.High, 1) {
		return fmt.Errorf("highest bucket ends at %v: %w", last.High, ErrNotTiled)
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Low != sorted[i-1].High {
			return fmt.Errorf("gap or overlap between %q and %q: %w",
				sorted[i-1].Label, sorted[i].Label, ErrNotTiled)
		}
	}
	return nil
}

// ProbabilityMethod records which path produced a bucket probability.
type ProbabilityMethod string

const (
	MethodExactCount ProbabilityMethod = "EXACT_COUNT"
	MethodNormalCDF  ProbabilityMethod = "NORMAL_CDF"
)

// BucketProbability is the model probability for one bucket.
type BucketProbability struct {
	Bucket      Bucket
	Probability float64
	Method      ProbabilityMethod
}
