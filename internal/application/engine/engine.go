// Package engine gestiona el ciclo de vida de las posiciones abiertas: stops por tick
// y resolución contra el outcome real del mercado.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/alejandrodnm/forecastedge/internal/ledger"
	"github.com/alejandrodnm/forecastedge/internal/lifecycle"
	"github.com/alejandrodnm/forecastedge/internal/ports"
	"github.com/alejandrodnm/forecastedge/internal/risk"
)

// Config holds lifecycle settings.
type Config struct {
	Stops            lifecycle.StopConfig
	StartingBankroll float64
	Events           []domain.EventSpec // specs conocidas, para re-fetch por slug
}

// Engine evalúa las posiciones OPEN una vez por ciclo.
type Engine struct {
	cfg      Config
	markets  ports.MarketProvider
	store    ports.LedgerStorage
	notifier ports.Notifier
	metrics  ports.Metrics
	guard    *risk.Guard
	specs    map[string]domain.EventSpec
	now      func() time.Time
}

// New creates a lifecycle engine.
func New(
	cfg Config,
	markets ports.MarketProvider,
	store ports.LedgerStorage,
	notifier ports.Notifier,
	metrics ports.Metrics,
	guard *risk.Guard,
) *Engine {
	specs := make(map[string]domain.EventSpec, len(cfg.Events))
	for _, s := range cfg.Events {
		specs[s.Slug] = s
	}
	return &Engine{
		cfg:      cfg,
		markets:  markets,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		guard:    guard,
		specs:    specs,
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// CycleResult contains everything produced by one lifecycle pass.
type CycleResult struct {
	Evaluated int
	Updated   int // stop state changed without closing
	Stopped   []domain.Position
	Resolved  []domain.Position
	Skipped   int
	Stats     domain.Stats
}

// Closed devuelve las posiciones que pasaron a terminal en este ciclo.
func (r *CycleResult) Closed() []domain.Position {
	out := make([]domain.Position, 0, len(r.Stopped)+len(r.Resolved))
	out = append(out, r.Stopped...)
	return append(out, r.Resolved...)
}

// RunOnce executes a single lifecycle pass over every OPEN position.
// Positions are grouped by event so each event is fetched once.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	open, err := e.store.GetOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: open positions: %w", err)
	}

	result := &CycleResult{}
	bySlug := make(map[string][]domain.Position)
	var order []string
	for _, p := range open {
		if _, seen := bySlug[p.EventSlug]; !seen {
			order = append(order, p.EventSlug)
		}
		bySlug[p.EventSlug] = append(bySlug[p.EventSlug], p)
	}

	for _, slug := range order {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("engine.RunOnce: %w", err)
		}
		positions := bySlug[slug]

		ev, err := e.markets.FetchEvent(ctx, e.spec(slug))
		if err != nil {
			result.Skipped += len(positions)
			e.metrics.RecordSkip("fetch_error")
			slog.Warn("engine: event fetch failed", "event", slug, "positions", len(positions), "err", err)
			continue
		}
		for _, p := range positions {
			result.Evaluated++
			e.evaluate(ctx, ev, p, result)
		}
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		return result, err
	}
	result.Stats = stats
	if !e.guard.Observe(e.cfg.StartingBankroll + stats.TotalProfit) {
		_, reason := e.guard.Status()
		slog.Warn("engine: risk guard halted", "reason", reason)
	}
	e.metrics.RecordOpenExposure(stats.OpenCost)

	if err := e.notifier.NotifyTransitions(ctx, result.Closed()); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("lifecycle pass complete",
		"evaluated", result.Evaluated,
		"updated", result.Updated,
		"stopped", len(result.Stopped),
		"resolved", len(result.Resolved),
		"skipped", result.Skipped,
		"realized_pnl", fmt.Sprintf("%.2f", stats.TotalProfit),
	)
	return result, nil
}

// evaluate resuelve la posición si su bucket tiene outcome; si no, aplica un tick de stops.
func (e *Engine) evaluate(ctx context.Context, ev domain.Event, p domain.Position, result *CycleResult) {
	b, ok := ev.Bucket(p.BucketID)
	if !ok {
		result.Skipped++
		slog.Warn("engine: bucket not found", "event", ev.Slug, "bucket", p.BucketID)
		return
	}

	if won, known := ledger.WonBy(p.Side, b.Outcome); known {
		e.resolve(ctx, p, won, result)
		return
	}
	if ev.Closed {
		// Cerrado pero sin outcome publicado todavía.
		slog.Debug("engine: awaiting settlement", "event", ev.Slug, "bucket", b.Label)
		return
	}

	next, tr := lifecycle.Tick(e.cfg.Stops, p, b.PriceYes, e.now())
	if !tr.Changed() {
		return
	}
	if err := e.store.UpdatePositionStop(ctx, next); err != nil {
		slog.Warn("engine: update stop failed", "position", p.ID, "err", err)
		return
	}
	if !tr.Stopped {
		result.Updated++
		slog.Debug("engine: stop state updated",
			"position", p.ID,
			"value", fmt.Sprintf("%.3f", tr.Value),
			"hwm", fmt.Sprintf("%.3f", next.Stop.HighWaterMark),
			"trailing", next.Stop.TrailingActive,
			"floor", fmt.Sprintf("%.3f", next.Stop.Floor()),
		)
		return
	}

	result.Stopped = append(result.Stopped, next)
	e.metrics.RecordStop(string(tr.Reason))
	e.metrics.RecordResolution(string(next.Status), next.RealizedPnL)
	slog.Info("position stopped",
		"event", p.EventSlug,
		"bucket", p.Label,
		"reason", tr.Reason,
		"entry", fmt.Sprintf("%.3f", p.EntryPrice),
		"exit", fmt.Sprintf("%.3f", tr.ExitPrice),
		"pnl", fmt.Sprintf("%+.2f", tr.RealizedPnL),
	)
}

func (e *Engine) resolve(ctx context.Context, p domain.Position, won bool, result *CycleResult) {
	resolved, err := ledger.Resolve(p, won, e.now())
	if errors.Is(err, domain.ErrAlreadyResolved) {
		return
	}
	if err != nil {
		slog.Warn("engine: resolve failed", "position", p.ID, "err", err)
		return
	}
	applied, err := e.store.ResolvePosition(ctx, resolved)
	if err != nil {
		slog.Warn("engine: persist resolution failed", "position", p.ID, "err", err)
		return
	}
	if !applied {
		// Otro proceso ya la resolvió.
		return
	}

	result.Resolved = append(result.Resolved, resolved)
	e.metrics.RecordResolution(string(resolved.Status), resolved.RealizedPnL)
	slog.Info("position resolved",
		"event", p.EventSlug,
		"bucket", p.Label,
		"status", resolved.Status,
		"payout", fmt.Sprintf("%.2f", resolved.Payout),
		"pnl", fmt.Sprintf("%+.2f", resolved.RealizedPnL),
	)
}

// Stats recomputa las estadísticas del ledger completo.
func (e *Engine) Stats(ctx context.Context) (domain.Stats, error) {
	all, err := e.store.GetAllPositions(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("engine.Stats: %w", err)
	}
	return ledger.ComputeStats(all), nil
}

func (e *Engine) spec(slug string) domain.EventSpec {
	if s, ok := e.specs[slug]; ok {
		return s
	}
	return domain.EventSpec{Slug: slug}
}
