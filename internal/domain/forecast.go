package domain

import "time"

// Provenance tags where a ForecastDistribution came from.
type Provenance string

const (
	ProvenanceEnsemble  Provenance = "ENSEMBLE"  // real ensemble members
	ProvenanceSynthetic Provenance = "SYNTHETIC" // surrogate samples around a deterministic value
)

// Forecast is the raw output of a forecast provider for one location and event date.
// Exactly one of Samples or Deterministic is normally set; both empty means "no data".
type Forecast struct {
	Location      string
	EventDate     time.Time
	Samples       []float64
	Deterministic *float64
	Source        string // provider/model name, for logs
}

// HasData reports whether the forecast carries anything usable.
func (f Forecast) HasData() bool {
	return len(f.Samples) > 0 || f.Deterministic != nil
}

// ForecastDistribution summarises a set of samples for one event date.
// Immutable once computed; recomputed on every scan.
type ForecastDistribution struct {
	Location    string
	EventDate   time.Time
	Mean        float64
	StdDev      float64
	MemberCount int
	Confidence  float64 // 0–1, relative to the location's typical spread
	Provenance  Provenance
	Samples     []float64
}

// IsSynthetic devuelve true si las muestras se generaron de una normal asumida.
func (d ForecastDistribution) IsSynthetic() bool {
	return d.Provenance == ProvenanceSynthetic
}
