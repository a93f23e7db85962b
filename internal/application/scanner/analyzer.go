package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/alejandrodnm/forecastedge/internal/ensemble"
	"github.com/alejandrodnm/forecastedge/internal/ladder"
	"github.com/alejandrodnm/forecastedge/internal/probability"
	"github.com/alejandrodnm/forecastedge/internal/signal"
)

// Analyzer corre el pipeline puro de un evento: distribución → probabilidades →
// señales → chequeo estructural → ladder. No hace I/O.
type Analyzer struct {
	aggregator *ensemble.Aggregator
	calculator *probability.Calculator
	detector   *signal.Detector
	ladders    *ladder.Builder
}

// NewAnalyzer crea un Analyzer con los componentes del core ya configurados.
func NewAnalyzer(
	aggregator *ensemble.Aggregator,
	calculator *probability.Calculator,
	detector *signal.Detector,
	ladders *ladder.Builder,
) *Analyzer {
	return &Analyzer{
		aggregator: aggregator,
		calculator: calculator,
		detector:   detector,
		ladders:    ladders,
	}
}

// Analyze evalúa un evento contra su forecast. Un forecast sin datos deja el
// report con Err = domain.ErrInsufficientData y sin señales.
func (a *Analyzer) Analyze(ev domain.Event, fc domain.Forecast, bankroll float64, now time.Time) domain.ScanReport {
	report := domain.ScanReport{Event: ev}

	dist, err := a.aggregator.FromForecast(fc)
	if err != nil {
		report.Err = fmt.Errorf("scanner.Analyze: %s: %w", ev.Slug, err)
		return report
	}
	report.Distribution = dist

	probs, err := a.calculator.Probabilities(dist, ev, ev.HoursToResolution(now))
	if err != nil {
		// Buckets inválidos se descartan; el resto del evento sigue.
		slog.Warn("invalid buckets skipped", "event", ev.Slug, "err", err)
	}
	if len(probs) == 0 {
		report.Err = fmt.Errorf("scanner.Analyze: %s: no valid buckets: %w", ev.Slug, domain.ErrInvalidBucketRange)
		return report
	}

	report.Signals = a.detector.EvaluateEvent(ev.ID, probs, dist.Confidence, now)

	alert, err := a.detector.CheckStructure(ev)
	switch {
	case errors.Is(err, domain.ErrNotTiled):
		slog.Debug("structural check skipped", "event", ev.Slug, "err", err)
	case err != nil:
		slog.Warn("structural check failed", "event", ev.Slug, "err", err)
	default:
		report.Alert = alert
	}

	report.Ladder = a.ladders.Build(ev.ID, report.Signals, bankroll, now)
	return report
}
