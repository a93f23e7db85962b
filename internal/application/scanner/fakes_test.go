package scanner_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeMarkets struct {
	events map[string]domain.Event
	calls  int
	mu     sync.Mutex
}

func (f *fakeMarkets) FetchEvent(_ context.Context, spec domain.EventSpec) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	ev, ok := f.events[spec.Slug]
	if !ok {
		return domain.Event{}, errors.New("event not found")
	}
	return ev, nil
}

type fakeForecasts struct {
	byLocation map[string]domain.Forecast
}

func (f *fakeForecasts) FetchForecast(_ context.Context, spec domain.EventSpec) (domain.Forecast, error) {
	return f.byLocation[spec.Location], nil
}

type memStorage struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	ladders   []domain.LadderPlan
	signals   []domain.Signal
	ladderErr error
}

func newMemStorage() *memStorage {
	return &memStorage{positions: make(map[string]domain.Position)}
}

func (m *memStorage) SaveSignals(_ context.Context, s []domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, s...)
	return nil
}

func (m *memStorage) SaveLadder(_ context.Context, p domain.LadderPlan, legs []domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ladderErr != nil {
		return m.ladderErr
	}
	m.ladders = append(m.ladders, p)
	for _, pos := range legs {
		m.positions[pos.ID] = pos
	}
	return nil
}

func (m *memStorage) SavePosition(_ context.Context, p domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.ID] = p
	return nil
}

func (m *memStorage) UpdatePositionStop(_ context.Context, p domain.Position) error {
	return m.SavePosition(context.Background(), p)
}

func (m *memStorage) ResolvePosition(_ context.Context, p domain.Position) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.positions[p.ID].IsOpen() {
		return false, nil
	}
	m.positions[p.ID] = p
	return true, nil
}

func (m *memStorage) GetOpenPositions(_ context.Context) ([]domain.Position, error) {
	all, _ := m.GetAllPositions(context.Background())
	var out []domain.Position
	for _, p := range all {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStorage) GetAllPositions(_ context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStorage) GetSignals(_ context.Context, _, _ time.Time) ([]domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Signal(nil), m.signals...), nil
}

func (m *memStorage) Close() error { return nil }

type recordingNotifier struct {
	reports []domain.ScanReport
}

func (n *recordingNotifier) NotifyScan(_ context.Context, r domain.ScanReport) error {
	n.reports = append(n.reports, r)
	return nil
}

func (n *recordingNotifier) NotifyTransitions(context.Context, []domain.Position) error { return nil }
func (n *recordingNotifier) PrintStats(domain.Stats) error                           { return nil }

func nycEvent() domain.Event {
	return domain.Event{
		ID: "ev1", Slug: "nyc", Title: "Highest temperature in NYC on October 20?",
		Category: "Weather", Location: "nyc", Granularity: 1,
		EventDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		EndDate:   now.Add(24 * time.Hour),
		Buckets: []domain.Bucket{
			{ID: "b1", Label: "73°F or below", Low: math.Inf(-1), High: 74, PriceYes: 0.05, PriceNo: 0.98},
			{ID: "b2", Label: "74-75°F", Low: 74, High: 76, PriceYes: 0.15, PriceNo: 0.86},
			{ID: "b3", Label: "76-77°F", Low: 76, High: 78, PriceYes: 0.18, PriceNo: 0.83},
			{ID: "b4", Label: "78-79°F", Low: 78, High: 80, PriceYes: 0.30, PriceNo: 0.97},
			{ID: "b5", Label: "80°F or higher", Low: 80, High: math.Inf(1), PriceYes: 0.10, PriceNo: 0.97},
		},
	}
}

func nycForecast() domain.Forecast {
	var samples []float64
	for i := 0; i < 10; i++ {
		samples = append(samples, 74, 75)
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, 76, 77)
	}
	return domain.Forecast{Location: "nyc", Samples: samples}
}
