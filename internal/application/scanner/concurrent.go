package scanner

// concurrent.go: worker pool para evaluar eventos en paralelo.
// Cada evento hace dos requests (Gamma + Open-Meteo); los rate limiters viven en los clientes.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// analyzeEventsConcurrent evalúa todos los eventos usando un worker pool.
// Los reports conservan el orden de specs. Si el contexto se cancela, los eventos
// aún no empezados quedan con Err = ctx.Err().
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func analyzeEventsConcurrent(
	ctx context.Context,
	s *Scanner,
	specs []domain.EventSpec,
	bankroll float64,
	now time.Time,
	workers int,
) []domain.ScanReport {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	reports := make([]domain.ScanReport, len(specs))
	workCh := make(chan int, len(specs))

	// Cada worker escribe solo en su índice de reports.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				spec := specs[idx]
				if err := ctx.Err(); err != nil {
					reports[idx] = domain.ScanReport{Event: placeholder(spec), Err: err}
					continue
				}
				reports[idx] = s.evaluate(ctx, spec, bankroll, now)
			}
		}()
	}

	for i := range specs {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("concurrent analysis complete",
		"events", len(specs),
		"workers", workers,
	)
	return reports
}

// evaluate hace fetch del mercado y del forecast y corre el Analyzer.
func (s *Scanner) evaluate(ctx context.Context, spec domain.EventSpec, bankroll float64, now time.Time) domain.ScanReport {
	ev, err := s.markets.FetchEvent(ctx, spec)
	if err != nil {
		return domain.ScanReport{Event: placeholder(spec), Err: fmt.Errorf("scanner.evaluate: market: %w", err)}
	}
	if ev.Location == "" {
		ev.Location = spec.Location
	}
	if ev.Closed {
		return domain.ScanReport{Event: ev, Err: fmt.Errorf("scanner.evaluate: %s: %w", ev.Slug, errEventClosed)}
	}

	if spec.EventDate.IsZero() {
		spec.EventDate = ev.EventDate
	}
	fc, err := s.forecasts.FetchForecast(ctx, spec)
	if err != nil {
		return domain.ScanReport{Event: ev, Err: fmt.Errorf("scanner.evaluate: forecast: %w", err)}
	}
	if fc.Location == "" {
		fc.Location = spec.Location
	}
	if fc.EventDate.IsZero() {
		fc.EventDate = spec.EventDate
	}

	slog.Debug("event fetched",
		"event", ev.Slug,
		"buckets", len(ev.Buckets),
		"members", len(fc.Samples),
		"source", fc.Source,
	)
	return s.analyzer.Analyze(ev, fc, bankroll, now)
}

func placeholder(spec domain.EventSpec) domain.Event {
	return domain.Event{Slug: spec.Slug, Location: spec.Location, EventDate: spec.EventDate}
}
