package lifecycle

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

var weatherEvent = domain.Event{
	ID:        "ev-1",
	Slug:      "highest-temperature-in-nyc-on-october-20",
	Title:     "Highest temperature in NYC on October 20?",
	Category:  "Weather",
	EventDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
}

func openAt(ev domain.Event, side domain.Side, entry, shares float64) domain.Position {
	s := domain.Signal{
		Bucket:    domain.Bucket{ID: "b-74", Label: "74-75°F", Low: 74, High: 76},
		Direction: side,
		Price:     entry,
	}
	return Open(ev, s, shares, "", t0)
}

func TestOpen(t *testing.T) {
	pos := openAt(weatherEvent, domain.SideYes, 0.10, 100)

	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, domain.StatusOpen, pos.Status)
	assert.Equal(t, domain.CategoryWeather, pos.Category)
	assert.InDelta(t, 10.0, pos.Cost, 1e-9)
	assert.Equal(t, 0.10, pos.Stop.HighWaterMark)
	assert.False(t, pos.Stop.TrailingActive)
	assert.Nil(t, pos.Stop.TrailingFloor)
	assert.Equal(t, "b-74", pos.BucketID)
	assert.Equal(t, weatherEvent.EventDate, pos.EventDate)
}

func TestTick_TrailingScenario(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.10, 100)

	// +40%: trailing arms, floor = max(0.10, 0.14-0.20) = 0.10
	pos, tr := Tick(cfg, pos, 0.14, t0.Add(time.Hour))
	assert.True(t, tr.Activated)
	assert.True(t, tr.HWMRaised)
	assert.False(t, tr.Stopped)
	require.NotNil(t, pos.Stop.TrailingFloor)
	assert.InDelta(t, 0.10, *pos.Stop.TrailingFloor, 1e-12)
	assert.InDelta(t, 0.14, pos.Stop.HighWaterMark, 1e-12)

	// Just above the floor: holds.
	held, tr := Tick(cfg, pos, 0.11, t0.Add(2*time.Hour))
	assert.False(t, tr.Stopped)
	assert.True(t, held.IsOpen())

	// Exactly at the floor: fires.
	atFloor, tr := Tick(cfg, pos, 0.10, t0.Add(2*time.Hour))
	assert.True(t, tr.Stopped)
	assert.Equal(t, domain.ExitTrailingStop, atFloor.ExitReason)

	// 0.08 is below the 0.10 floor: stopped at the floor, break-even.
	stopped, tr := Tick(cfg, held, 0.08, t0.Add(3*time.Hour))
	assert.True(t, tr.Stopped)
	assert.Equal(t, domain.StatusStopped, stopped.Status)
	assert.Equal(t, domain.ExitTrailingStop, stopped.ExitReason)
	assert.InDelta(t, 0.10, stopped.ExitPrice, 1e-12)
	assert.InDelta(t, 0.0, stopped.RealizedPnL, 1e-9)
	require.NotNil(t, stopped.ResolvedAt)
}

func TestTick_FixedStopScenario(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.20, 50)

	pos, tr := Tick(cfg, pos, 0.09, t0.Add(time.Hour))
	assert.True(t, tr.Stopped)
	assert.Equal(t, domain.StatusStopped, pos.Status)
	assert.Equal(t, domain.ExitFixedStop, pos.ExitReason)
	assert.InDelta(t, 0.09, pos.ExitPrice, 1e-12)
	assert.InDelta(t, (0.09-0.20)*50, pos.RealizedPnL, 1e-9)
	assert.InDelta(t, pos.Payout-pos.Cost, pos.RealizedPnL, 1e-9)
}

func TestTick_VolatileCategorySkipsFixedStop(t *testing.T) {
	ev := domain.Event{ID: "ev-2", Slug: "nba-lal-bos-2026-10-20", Title: "Lakers vs. Celtics"}
	pos := openAt(ev, domain.SideYes, 0.20, 50)
	require.Equal(t, domain.CategorySports, pos.Category)

	pos, tr := Tick(DefaultStopConfig(), pos, 0.05, t0)
	assert.False(t, tr.Stopped)
	assert.True(t, pos.IsOpen())
}

func TestTick_TrailingWinsWhenBothFire(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.20, 10)

	pos, _ = Tick(cfg, pos, 0.30, t0) // floor = max(0.20, 0.10)
	pos, tr := Tick(cfg, pos, 0.05, t0)
	assert.Equal(t, domain.ExitTrailingStop, tr.Reason)
	assert.InDelta(t, 0.20, pos.ExitPrice, 1e-12)
	assert.InDelta(t, 0.0, pos.RealizedPnL, 1e-9)
}

func TestTick_FloorRatchets(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.30, 10)

	pos, tr := Tick(cfg, pos, 0.40, t0)
	require.True(t, tr.Activated)
	assert.InDelta(t, 0.30, pos.Stop.Floor(), 1e-12)

	pos, tr = Tick(cfg, pos, 0.60, t0)
	assert.True(t, tr.FloorRaised)
	assert.InDelta(t, 0.40, pos.Stop.Floor(), 1e-12)

	pos, tr = Tick(cfg, pos, 0.45, t0)
	assert.False(t, tr.FloorRaised)
	assert.False(t, tr.Stopped)
	assert.InDelta(t, 0.40, pos.Stop.Floor(), 1e-12)
	assert.InDelta(t, 0.60, pos.Stop.HighWaterMark, 1e-12)
}

func TestTick_NegatedSide(t *testing.T) {
	pos := openAt(weatherEvent, domain.SideNo, 0.70, 10)
	// YES at 0.80 → NO worth 0.20, -71%
	pos, tr := Tick(DefaultStopConfig(), pos, 0.80, t0)
	assert.True(t, tr.Stopped)
	assert.Equal(t, domain.ExitFixedStop, pos.ExitReason)
	assert.InDelta(t, 0.20, pos.ExitPrice, 1e-9)
}

func TestTick_DoesNotMutateInput(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.30, 10)
	pos, _ = Tick(cfg, pos, 0.40, t0)
	before := *pos.Stop.TrailingFloor

	_, _ = Tick(cfg, pos, 0.70, t0)
	assert.Equal(t, before, *pos.Stop.TrailingFloor)
}

func TestTick_TerminalUnchanged(t *testing.T) {
	cfg := DefaultStopConfig()
	pos := openAt(weatherEvent, domain.SideYes, 0.20, 50)
	stopped, _ := Tick(cfg, pos, 0.09, t0)

	again, tr := Tick(cfg, stopped, 0.99, t0.Add(time.Hour))
	assert.Equal(t, stopped, again)
	assert.False(t, tr.Changed())
}

func TestTick_RandomWalkMonotonic(t *testing.T) {
	cfg := DefaultStopConfig()
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		entry := 0.05 + rng.Float64()*0.5
		pos := openAt(weatherEvent, domain.SideYes, entry, 10)
		price := entry

		hwm := pos.Stop.HighWaterMark
		wasActive := false
		floor := -1.0
		for step := 0; step < 100; step++ {
			price += (rng.Float64() - 0.5) * 0.08
			price = min(max(price, 0.001), 0.999)

			pos, _ = Tick(cfg, pos, price, t0)

			assert.GreaterOrEqual(t, pos.Stop.HighWaterMark, hwm)
			hwm = pos.Stop.HighWaterMark
			if wasActive {
				assert.True(t, pos.Stop.TrailingActive, "trailing deactivated")
			}
			wasActive = pos.Stop.TrailingActive
			if pos.Stop.TrailingFloor != nil {
				assert.GreaterOrEqual(t, *pos.Stop.TrailingFloor, floor)
				floor = *pos.Stop.TrailingFloor
			}
		}
	}
}

func TestFixedStopApplies(t *testing.T) {
	cfg := DefaultStopConfig()
	assert.True(t, cfg.FixedStopApplies(domain.CategoryWeather))
	assert.True(t, cfg.FixedStopApplies(domain.CategoryPolitics))
	assert.False(t, cfg.FixedStopApplies(domain.CategorySports))
	assert.False(t, cfg.FixedStopApplies(domain.CategoryCrypto))
}
