package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/adapters/storage"
	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	opened    = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	eventDate = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
)

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makePosition(id string, entry float64) domain.Position {
	return domain.Position{
		ID:         id,
		EventID:    "ev-1",
		EventSlug:  "highest-temperature-in-nyc-on-october-20",
		BucketID:   "0xc2",
		Label:      "74-75°F",
		Category:   domain.CategoryWeather,
		Side:       domain.SideYes,
		EntryPrice: entry,
		Shares:     100,
		Cost:       entry * 100,
		Status:     domain.StatusOpen,
		Stop:       domain.StopState{HighWaterMark: entry},
		EventDate:  eventDate,
		OpenedAt:   opened,
	}
}

func TestSQLiteStorage_SaveAndLoadPosition(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	require.NoError(t, db.SavePosition(ctx, makePosition("p1", 0.10)))

	open, err := db.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	p := open[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, domain.CategoryWeather, p.Category)
	assert.Equal(t, domain.SideYes, p.Side)
	assert.Equal(t, domain.StatusOpen, p.Status)
	assert.InDelta(t, 10.0, p.Cost, 1e-9)
	assert.Equal(t, eventDate, p.EventDate)
	assert.Equal(t, opened, p.OpenedAt)
	assert.Nil(t, p.ResolvedAt)
	assert.Equal(t, 0.10, p.Stop.HighWaterMark)
	assert.Nil(t, p.Stop.TrailingFloor)
}

func TestSQLiteStorage_StopStateRoundTrip(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	p := makePosition("p1", 0.10)
	require.NoError(t, db.SavePosition(ctx, p))

	floor := 0.12
	p.Stop = domain.StopState{HighWaterMark: 0.32, TrailingActive: true, TrailingFloor: &floor}
	require.NoError(t, db.UpdatePositionStop(ctx, p))

	open, err := db.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].Stop.TrailingActive)
	require.NotNil(t, open[0].Stop.TrailingFloor)
	assert.Equal(t, 0.12, *open[0].Stop.TrailingFloor)
	assert.Equal(t, 0.32, open[0].Stop.HighWaterMark)
}

func TestSQLiteStorage_StoppedLeavesOpenSet(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	p := makePosition("p1", 0.20)
	require.NoError(t, db.SavePosition(ctx, p))

	at := opened.Add(time.Hour)
	p.Status = domain.StatusStopped
	p.ExitReason = domain.ExitFixedStop
	p.ExitPrice = 0.09
	p.Payout = 9
	p.RealizedPnL = -11
	p.ResolvedAt = &at
	require.NoError(t, db.UpdatePositionStop(ctx, p))

	open, err := db.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := db.GetAllPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusStopped, all[0].Status)
	assert.Equal(t, domain.ExitFixedStop, all[0].ExitReason)
	assert.InDelta(t, -11.0, all[0].RealizedPnL, 1e-9)
	require.NotNil(t, all[0].ResolvedAt)
	assert.Equal(t, at, *all[0].ResolvedAt)
}

func TestSQLiteStorage_ResolveIdempotent(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	p := makePosition("p1", 0.10)
	require.NoError(t, db.SavePosition(ctx, p))

	at := opened.Add(48 * time.Hour)
	won := p
	won.Status, won.ExitReason, won.ExitPrice = domain.StatusWon, domain.ExitResolvedWin, 1
	won.Payout, won.RealizedPnL, won.ResolvedAt = 100, 90, &at

	applied, err := db.ResolvePosition(ctx, won)
	require.NoError(t, err)
	assert.True(t, applied)

	lost := won
	lost.Status, lost.Payout, lost.RealizedPnL = domain.StatusLost, 0, -10
	applied, err = db.ResolvePosition(ctx, lost)
	require.NoError(t, err)
	assert.False(t, applied)

	all, err := db.GetAllPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusWon, all[0].Status)
	assert.InDelta(t, 90.0, all[0].RealizedPnL, 1e-9)
}

func ladderPlan() (domain.LadderPlan, []domain.Position) {
	plan := domain.LadderPlan{
		ID:        "ladder-1",
		EventID:   "ev-1",
		PeakIndex: 2,
		Legs:      []domain.LadderLeg{{SizeUSD: 0.5}, {SizeUSD: 0.6}},
		TotalCost: 1.1,
		Budget:    1.5,
		CreatedAt: opened,
	}
	a, b := makePosition("leg-a", 0.10), makePosition("leg-b", 0.12)
	a.LadderID, b.LadderID = plan.ID, plan.ID
	return plan, []domain.Position{a, b}
}

func TestSQLiteStorage_SaveLadder(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	plan, legs := ladderPlan()

	require.NoError(t, db.SaveLadder(ctx, plan, legs))
	open, err := db.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		assert.Equal(t, "ladder-1", p.LadderID)
	}

	// Duplicate IDs are rejected.
	assert.Error(t, db.SaveLadder(ctx, plan, nil))
}

func TestSQLiteStorage_SaveLadder_AllOrNothing(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	plan, legs := ladderPlan()

	// La segunda leg choca con una posición existente: la cabecera y la primera leg se descartan.
	require.NoError(t, db.SavePosition(ctx, makePosition("leg-b", 0.30)))
	require.Error(t, db.SaveLadder(ctx, plan, legs))

	all, err := db.GetAllPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].LadderID)

	// La cabecera tampoco quedó escrita: el mismo ID entra sin conflicto.
	legs[1].ID = "leg-c"
	require.NoError(t, db.SaveLadder(ctx, plan, legs))
	all, err = db.GetAllPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStorage_Signals(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sigs := []domain.Signal{
		{EventID: "ev-1", Bucket: domain.Bucket{ID: "a"}, Edge: 0.06, Verdict: domain.VerdictLadder, Direction: domain.SideYes, CreatedAt: now},
		{EventID: "ev-1", Bucket: domain.Bucket{ID: "b"}, Edge: 0.15, Verdict: domain.VerdictTrade, Direction: domain.SideNo, CreatedAt: now},
		{EventID: "ev-1", Bucket: domain.Bucket{ID: "c"}, Edge: 0.01, Verdict: domain.VerdictFair, CreatedAt: now},
	}
	require.NoError(t, db.SaveSignals(ctx, sigs))
	require.NoError(t, db.SaveSignals(ctx, nil))

	got, err := db.GetSignals(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2, "FAIR signals are not persisted")
	assert.Equal(t, "b", got[0].Bucket.ID)
	assert.Equal(t, domain.SideNo, got[0].Direction)
	assert.Equal(t, domain.VerdictTrade, got[0].Verdict)
	assert.Equal(t, now, got[0].CreatedAt)
}
