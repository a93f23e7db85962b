package notify_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alejandrodnm/forecastedge/internal/adapters/notify"
	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReport() domain.ScanReport {
	return domain.ScanReport{
		Event: domain.Event{Title: "Highest temperature in NYC on October 20?", Slug: "nyc"},
		Distribution: domain.ForecastDistribution{
			Mean: 75.2, StdDev: 1.8, Confidence: 0.55, MemberCount: 30,
			Provenance: domain.ProvenanceEnsemble,
		},
		Signals: []domain.Signal{
			{Bucket: domain.Bucket{Label: "74-75°F", PriceYes: 0.25, PriceNo: 0.77}, Probability: 0.40,
				EdgeYes: 0.15, EdgeNo: -0.17, Direction: domain.SideYes, Price: 0.25, Edge: 0.15,
				Verdict: domain.VerdictTrade},
			{Bucket: domain.Bucket{Label: "80°F or higher", PriceYes: 0.05, PriceNo: 0.96}, Probability: 0.04,
				EdgeYes: -0.01, EdgeNo: 0.0, Direction: domain.SideYes, Verdict: domain.VerdictFair},
		},
		Alert: &domain.StructuralAlert{Sum: 1.12, Deviation: 0.12, Kind: domain.AlertOverpriced},
		Opened: []domain.Position{
			{Side: domain.SideYes, Label: "74-75°F", Category: domain.CategoryWeather, EntryPrice: 0.25, Shares: 40, Cost: 10},
		},
	}
}

func TestConsole_NotifyScan_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, true).NotifyScan(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "Highest temperature in NYC")
	assert.Contains(t, out, "74-75°F")
	assert.Contains(t, out, "TRADE")
	assert.Contains(t, out, "+0.150")
	assert.Contains(t, out, "OVERPRICED")
	assert.Contains(t, out, "1/2 actionable")
	assert.Contains(t, out, "$10.00")
}

func TestConsole_NotifyScan_Compact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, false).NotifyScan(context.Background(), makeReport()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "TRADE 74-75°F")
	assert.Contains(t, out, "+1 pos")
	assert.NotContains(t, out, "80°F or higher")
}

func TestConsole_NotifyScan_Skipped(t *testing.T) {
	var buf bytes.Buffer
	r := domain.ScanReport{Event: domain.Event{Slug: "nyc"}, Err: errors.New("insufficient forecast data")}
	require.NoError(t, notify.NewConsoleWriter(&buf, true).NotifyScan(context.Background(), r))
	assert.Contains(t, buf.String(), "nyc skipped: insufficient forecast data")
}

func TestConsole_LongTitleTruncated(t *testing.T) {
	var buf bytes.Buffer
	r := makeReport()
	r.Event.Title = strings.Repeat("A", 80)
	require.NoError(t, notify.NewConsoleWriter(&buf, false).NotifyScan(context.Background(), r))
	assert.Contains(t, buf.String(), "...")
}

func TestConsole_NotifyTransitions(t *testing.T) {
	var buf bytes.Buffer
	closed := []domain.Position{{
		Status: domain.StatusStopped, ExitReason: domain.ExitFixedStop, EventSlug: "nyc",
		Label: "74-75°F", EntryPrice: 0.20, ExitPrice: 0.09, RealizedPnL: -5.5,
	}}
	require.NoError(t, notify.NewConsoleWriter(&buf, true).NotifyTransitions(context.Background(), closed))
	out := buf.String()
	assert.Contains(t, out, "FIXED_STOP")
	assert.Contains(t, out, "$-5.50")
}

func TestConsole_PrintStats(t *testing.T) {
	var buf bytes.Buffer
	st := domain.Stats{
		Total: 3, Resolved: 3, Won: 1, Lost: 1, Stopped: 1, Wins: 1, Losses: 2,
		WinRate: 1.0 / 3, TotalCost: 30, TotalPayout: 104.5, TotalProfit: 74.5,
		AvgWin: 90, AvgLoss: -7.75, WinsNeededPerLoss: 0.086,
		ByCategory: []domain.BreakdownStats{{Key: "WEATHER", Trades: 2, Wins: 1, Losses: 1, WinRate: 0.5, Cost: 20, Profit: 80}},
		ByTier:     []domain.BreakdownStats{{Key: "10-20¢", Trades: 1, Wins: 1, WinRate: 1, Cost: 10, Profit: 90}},
	}
	require.NoError(t, notify.NewConsoleWriter(&buf, true).PrintStats(st))

	out := buf.String()
	assert.Contains(t, out, "win rate 33.3%")
	assert.Contains(t, out, "pnl $+74.50")
	assert.Contains(t, out, "WEATHER")
	assert.Contains(t, out, "10-20¢")
}

func TestConsole_PrintStats_NothingResolved(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, true).PrintStats(domain.Stats{Total: 2, Open: 2, OpenCost: 12}))
	assert.Contains(t, buf.String(), "no resolved positions yet")
}

func TestConsole_PrintSignals(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.PrintSignals(nil)
	assert.Contains(t, buf.String(), "no signals recorded")

	buf.Reset()
	c.PrintSignals(makeReport().Signals[:1])
	out := buf.String()
	assert.Contains(t, out, "74-75°F")
	assert.Contains(t, out, "+0.150")
}
