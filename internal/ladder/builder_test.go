package ladder

import (
	"testing"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/alejandrodnm/forecastedge/internal/sizing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func sig(id string, low, p, priceYes float64) domain.Signal {
	return domain.Signal{
		EventID:     "ev",
		Bucket:      domain.Bucket{ID: id, Low: low, High: low + 2, PriceYes: priceYes, PriceNo: 1 - priceYes},
		Probability: p,
		EdgeYes:     p - priceYes,
		Confidence:  0.8,
	}
}

// Five adjacent buckets: the outer two fail the filters, the inner three qualify.
func candidates() []domain.Signal {
	return []domain.Signal{
		sig("a", 70, 0.12, 0.10), // edge 0.02: below ladder edge
		sig("b", 72, 0.22, 0.10),
		sig("c", 74, 0.30, 0.12), // peak
		sig("d", 76, 0.28, 0.15),
		sig("e", 78, 0.08, 0.35), // above the cheap ceiling
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Sizing = sizing.Config{KellyFraction: 0.25, MaxTradeUSD: 10, MaxBankrollPct: 0.05}
	cfg.MinLegUSD = 0.25
	cfg.MinShares = 5
	return cfg
}

func assertLegsCapped(t *testing.T, cfg Config, plan *domain.LadderPlan) {
	t.Helper()
	perLeg := cfg.Budget / float64(cfg.MaxLegs)
	for _, leg := range plan.Legs {
		assert.LessOrEqual(t, leg.SizeUSD, perLeg+1e-9, "leg %s", leg.Signal.Bucket.ID)
	}
	assert.LessOrEqual(t, plan.TotalCost, cfg.Budget)
}

func TestBuild_BudgetTruncatesToTwoLegs(t *testing.T) {
	cfg := testConfig()
	cfg.MinShares = 4
	cfg.MaxLegs = 2
	cfg.Budget = 1.20 // per-leg 0.60

	// bankroll 20 → limit 1.00; Kelly: b 0.533, c 0.818, d 0.612.
	// b entra con su Kelly, c y d quedan en 0.60; d ya no cabe.
	plan := New(cfg).Build("ev", candidates(), 20, now)
	require.NotNil(t, plan)

	require.Len(t, plan.Legs, 2)
	assert.Equal(t, "b", plan.Legs[0].Signal.Bucket.ID)
	assert.Equal(t, "c", plan.Legs[1].Signal.Bucket.ID)
	assert.InDelta(t, 0.12*0.8/0.9*0.25*20, plan.Legs[0].SizeUSD, 1e-6)
	assert.InDelta(t, 0.60, plan.Legs[1].SizeUSD, 1e-9)
	assert.InDelta(t, 1.1333333, plan.TotalCost, 1e-6)
	assertLegsCapped(t, cfg, plan)
	assert.Equal(t, 2, plan.PeakIndex)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, now, plan.CreatedAt)
}

func TestBuild_MinSharesSkipsInsteadOfUpsizing(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5 // per-leg 1.00
	cfg.MinShares = 8

	// 8 shares of d at 0.15 cost 1.20 > per-leg
	plan := New(cfg).Build("ev", candidates(), 1000, now)
	require.NotNil(t, plan)
	require.Len(t, plan.Legs, 2)
	assert.Equal(t, "b", plan.Legs[0].Signal.Bucket.ID)
	assert.Equal(t, "c", plan.Legs[1].Signal.Bucket.ID)
	for _, leg := range plan.Legs {
		assert.GreaterOrEqual(t, leg.Shares, cfg.MinShares)
	}
	assertLegsCapped(t, cfg, plan)
}

func TestBuild_AllQualifyingLegsWithinBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5

	plan := New(cfg).Build("ev", candidates(), 1000, now)
	require.NotNil(t, plan)
	require.Len(t, plan.Legs, 3)
	for _, leg := range plan.Legs {
		assert.Equal(t, domain.SideYes, leg.Signal.Direction)
		assert.InDelta(t, leg.Shares*leg.Signal.Bucket.PriceYes, leg.SizeUSD, 1e-9)
		assert.LessOrEqual(t, leg.Signal.Bucket.PriceYes, cfg.CheapCeiling)
	}
	assertLegsCapped(t, cfg, plan)
}

func TestBuild_MaxLegs(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 100
	cfg.MaxLegs = 2
	plan := New(cfg).Build("ev", candidates(), 1000, now)
	require.NotNil(t, plan)
	assert.Len(t, plan.Legs, 2)
}

func TestBuild_SortsByMidpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5
	in := candidates()
	in[0], in[4] = in[4], in[0]
	in[1], in[3] = in[3], in[1]

	plan := New(cfg).Build("ev", in, 1000, now)
	require.NotNil(t, plan)
	require.Len(t, plan.Legs, 3)
	assert.Equal(t, "b", plan.Legs[0].Signal.Bucket.ID)
	assert.Equal(t, "d", plan.Legs[2].Signal.Bucket.ID)
}

func TestBuild_SingleLegRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5
	in := candidates()
	in[1].EdgeYes, in[3].EdgeYes = 0, 0

	assert.Nil(t, New(cfg).Build("ev", in, 1000, now))
}

func TestBuild_WindowAroundPeak(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5
	cfg.Window = 0
	// Only the peak is inside a zero-width window.
	assert.Nil(t, New(cfg).Build("ev", candidates(), 1000, now))
}

func TestBuild_LowConfidence(t *testing.T) {
	cfg := testConfig()
	cfg.Budget = 5
	in := candidates()
	for i := range in {
		in[i].Confidence = 0.1
	}
	assert.Nil(t, New(cfg).Build("ev", in, 1000, now))
}
