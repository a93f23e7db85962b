// Package probability maps a forecast distribution onto the discrete buckets of an event.
package probability

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// HorizonBand is the minimum σ applied when the event resolves within MaxHours.
type HorizonBand struct {
	MaxHours float64
	Sigma    float64
}

// Config configures the calculator.
type Config struct {
	// HorizonBands must widen with the horizon. The last band also covers anything beyond it.
	HorizonBands []HorizonBand
}

// DefaultConfig devuelve bandas para temperatura diaria en °F.
func DefaultConfig() Config {
	return Config{
		HorizonBands: []HorizonBand{
			{MaxHours: 24, Sigma: 2.0},
			{MaxHours: 48, Sigma: 2.5},
			{MaxHours: 72, Sigma: 3.0},
			{MaxHours: 120, Sigma: 3.5},
			{MaxHours: math.Inf(1), Sigma: 4.5},
		},
	}
}

// Calculator computes bucket probabilities. Stateless.
type Calculator struct {
	bands []HorizonBand
}

// New crea un Calculator. Las bandas se ordenan por horizonte.
func New(cfg Config) *Calculator {
	bands := cfg.HorizonBands
	if len(bands) == 0 {
		bands = DefaultConfig().HorizonBands
	}
	sorted := make([]HorizonBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaxHours < sorted[j].MaxHours })
	return &Calculator{bands: sorted}
}

// HorizonSigma returns the σ floor for an event resolving in hoursToResolution hours.
func (c *Calculator) HorizonSigma(hoursToResolution float64) float64 {
	for _, b := range c.bands {
		if hoursToResolution <= b.MaxHours {
			return b.Sigma
		}
	}
	return c.bands[len(c.bands)-1].Sigma
}

// BucketProbability returns the probability that the resolved value lands in b.
// Real ensembles with samples use exact counting; everything else uses the normal CDF.
func (c *Calculator) BucketProbability(dist domain.ForecastDistribution, b domain.Bucket, granularity, hoursToResolution float64) (domain.BucketProbability, error) {
	if err := b.Validate(); err != nil {
		return domain.BucketProbability{}, fmt.Errorf("probability.BucketProbability: %w", err)
	}
	if dist.Provenance == domain.ProvenanceEnsemble && len(dist.Samples) > 0 {
		return domain.BucketProbability{
			Bucket:      b,
			Probability: ExactCount(dist.Samples, b, granularity),
			Method:      domain.MethodExactCount,
		}, nil
	}

	sigma := math.Max(dist.StdDev, c.HorizonSigma(hoursToResolution))
	return domain.BucketProbability{
		Bucket:      b,
		Probability: NormalMass(dist.Mean, sigma, b, granularity),
		Method:      domain.MethodNormalCDF,
	}, nil
}

// Probabilities evaluates every bucket of an event. Invalid buckets are skipped and
// reported in the joined error; the valid ones are still returned.
func (c *Calculator) Probabilities(dist domain.ForecastDistribution, ev domain.Event, hoursToResolution float64) ([]domain.BucketProbability, error) {
	out := make([]domain.BucketProbability, 0, len(ev.Buckets))
	var errs []error
	for _, b := range ev.Buckets {
		bp, err := c.BucketProbability(dist, b, ev.Granularity, hoursToResolution)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, bp)
	}
	return out, errors.Join(errs...)
}

// ExactCount rounds each sample to the granularity and returns the share landing in b.
func ExactCount(samples []float64, b domain.Bucket, granularity float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	hits := 0
	for _, s := range samples {
		if b.Contains(Round(s, granularity)) {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}

// NormalMass integrates Normal(mean, sigma) over the values that round into b.
// A value v resolves into [Low, High) when v ∈ [Low-g/2, High-g/2).
func NormalMass(mean, sigma float64, b domain.Bucket, granularity float64) float64 {
	shift := granularity / 2
	if sigma <= 0 {
		// Point mass.
		if b.Contains(Round(mean, granularity)) {
			return 1
		}
		return 0
	}
	hi := cdf(b.High-shift, mean, sigma)
	lo := cdf(b.Low-shift, mean, sigma)
	p := hi - lo
	if p < 0 {
		return 0
	}
	return p
}

// Round aplica la regla de resolución del mercado: múltiplo más cercano de g.
func Round(v, granularity float64) float64 {
	if granularity <= 0 {
		return v
	}
	return math.Round(v/granularity) * granularity
}

func cdf(x, mean, sigma float64) float64 {
	switch {
	case math.IsInf(x, -1):
		return 0
	case math.IsInf(x, 1):
		return 1
	}
	return 0.5 * (1 + math.Erf((x-mean)/(sigma*math.Sqrt2)))
}
