// Package ensemble turns raw forecast samples into a ForecastDistribution.
package ensemble

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// Config controls confidence baselines and the synthetic fallback.
type Config struct {
	// DefaultTypicalSpread is the std-dev considered "normal" for the quantity when a
	// location has no entry in TypicalSpread. Confidence is 1 - stdDev/typicalSpread.
	DefaultTypicalSpread float64
	TypicalSpread        map[string]float64

	SyntheticSigma      float64 // assumed σ around a deterministic value
	SyntheticMembers    int
	SyntheticConfidence float64 // fixed, conservative; 0 means default
	Seed                uint64
}

// DefaultConfig returns values tuned for daily max temperature in °F.
func DefaultConfig() Config {
	return Config{
		DefaultTypicalSpread: 4.0,
		TypicalSpread:        map[string]float64{},
		SyntheticSigma:       3.0,
		SyntheticMembers:     50,
		SyntheticConfidence:  0.25,
		Seed:                 42,
	}
}

// Aggregator builds distributions for a batch of events. Stateless and safe for concurrent use.
type Aggregator struct {
	cfg Config
}

// New crea un Aggregator con defaults para los campos vacíos.
func New(cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.DefaultTypicalSpread <= 0 {
		cfg.DefaultTypicalSpread = def.DefaultTypicalSpread
	}
	if cfg.SyntheticSigma <= 0 {
		cfg.SyntheticSigma = def.SyntheticSigma
	}
	if cfg.SyntheticMembers <= 0 {
		cfg.SyntheticMembers = def.SyntheticMembers
	}
	if cfg.SyntheticConfidence <= 0 {
		cfg.SyntheticConfidence = def.SyntheticConfidence
	}
	return &Aggregator{cfg: cfg}
}

// FromForecast picks the real-ensemble path when samples exist, the synthetic path when
// only a deterministic value exists, and fails with ErrInsufficientData otherwise.
func (a *Aggregator) FromForecast(f domain.Forecast) (domain.ForecastDistribution, error) {
	if len(f.Samples) > 0 {
		dist, err := a.Aggregate(f.Location, f.EventDate, f.Samples)
		if err == nil || f.Deterministic == nil {
			return dist, err
		}
	}
	if f.Deterministic != nil && isFinite(*f.Deterministic) {
		return a.Synthetic(f.Location, f.EventDate, *f.Deterministic), nil
	}
	return domain.ForecastDistribution{}, fmt.Errorf("ensemble.FromForecast %s %s: %w",
		f.Location, f.EventDate.Format("2006-01-02"), domain.ErrInsufficientData)
}

// Aggregate summarises real ensemble members. Non-finite samples are dropped.
func (a *Aggregator) Aggregate(location string, eventDate time.Time, samples []float64) (domain.ForecastDistribution, error) {
	clean := make([]float64, 0, len(samples))
	for _, s := range samples {
		if isFinite(s) {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return domain.ForecastDistribution{}, fmt.Errorf("ensemble.Aggregate %s: %w", location, domain.ErrInsufficientData)
	}

	mean, sd := Summarize(clean)
	return domain.ForecastDistribution{
		Location:    location,
		EventDate:   eventDate,
		Mean:        mean,
		StdDev:      sd,
		MemberCount: len(clean),
		Confidence:  clamp01(1 - sd/a.TypicalSpread(location)),
		Provenance:  domain.ProvenanceEnsemble,
		Samples:     clean,
	}, nil
}

// Synthetic generates surrogate members around a deterministic value.
// The sequence is deterministic for a given seed, location and date.
func (a *Aggregator) Synthetic(location string, eventDate time.Time, value float64) domain.ForecastDistribution {
	rng := rand.New(rand.NewPCG(a.cfg.Seed, seedFor(location, eventDate)))
	samples := boxMuller(rng, a.cfg.SyntheticMembers, value, a.cfg.SyntheticSigma)
	mean, sd := Summarize(samples)
	return domain.ForecastDistribution{
		Location:    location,
		EventDate:   eventDate,
		Mean:        mean,
		StdDev:      sd,
		MemberCount: len(samples),
		Confidence:  a.cfg.SyntheticConfidence,
		Provenance:  domain.ProvenanceSynthetic,
		Samples:     samples,
	}
}

// TypicalSpread devuelve el spread de referencia de la ubicación, o el default.
func (a *Aggregator) TypicalSpread(location string) float64 {
	if v, ok := a.cfg.TypicalSpread[strings.ToLower(location)]; ok && v > 0 {
		return v
	}
	return a.cfg.DefaultTypicalSpread
}

// Summarize returns the arithmetic mean and population standard deviation.
func Summarize(samples []float64) (mean, sd float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(samples)))
}

// boxMuller draws n normal variates, two per pair of uniforms.
func boxMuller(rng *rand.Rand, n int, mean, sigma float64) []float64 {
	out := make([]float64, 0, n)
	for len(out) < n {
		u1 := 1 - rng.Float64() // (0, 1]: log(0) is undefined
		u2 := rng.Float64()
		r := math.Sqrt(-2 * math.Log(u1))
		out = append(out, mean+sigma*r*math.Cos(2*math.Pi*u2))
		if len(out) < n {
			out = append(out, mean+sigma*r*math.Sin(2*math.Pi*u2))
		}
	}
	return out
}

func seedFor(location string, eventDate time.Time) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(location)))
	h.Write([]byte(eventDate.Format("2006-01-02")))
	return h.Sum64()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
