package scanner

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
	"github.com/alejandrodnm/forecastedge/internal/sizing"
)

var errEventClosed = errors.New("event closed")

// Config contiene la configuración del scanner.
type Config struct {
	Events           []domain.EventSpec
	AnalysisWorkers  int     // goroutines para análisis paralelo (0 = NumCPU*2)
	StartingBankroll float64 // bankroll = starting + PnL realizado
	PaperTrade       bool    // false = solo señales, no abre posiciones
}

// Scanner recorre los eventos configurados, detecta señales y abre posiciones paper.
type Scanner struct {
	cfg       Config
	markets   ports.MarketProvider
	forecasts ports.ForecastProvider
	storage   ports.LedgerStorage
	notifier  ports.Notifier
	metrics   ports.Metrics
	analyzer  *Analyzer
	guard     *risk.Guard
	sizing    sizing.Config
	now       func() time.Time

	previousAlerts map[string]bool // eventos con alerta estructural en el ciclo anterior
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(
	cfg Config,
	markets ports.MarketProvider,
	forecasts ports.ForecastProvider,
	storage ports.LedgerStorage,
	notifier ports.Notifier,
	metrics ports.Metrics,
	analyzer *Analyzer,
	guard *risk.Guard,
	sizingCfg sizing.Config,
) *Scanner {
	return &Scanner{
		cfg:            cfg,
		markets:        markets,
		forecasts:      forecasts,
		storage:        storage,
		notifier:       notifier,
		metrics:        metrics,
		analyzer:       analyzer,
		guard:          guard,
		sizing:         sizingCfg,
		now:            time.Now,
		previousAlerts: make(map[string]bool),
	}
}

// SetClock reemplaza el reloj (tests).
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// book es la foto del ledger al inicio del ciclo. Solo el post-pass la modifica.
type book struct {
	bankroll float64
	exposure float64
	held     map[string]bool
}

func holdingKey(eventID, bucketID string, side domain.Side) string {
	return eventID + "|" + bucketID + "|" + string(side)
}

// RunCycle ejecuta un ciclo: fetch + análisis en paralelo, luego un post-pass
// secuencial que persiste señales, abre posiciones y notifica.
func (s *Scanner) RunCycle(ctx context.Context) ([]domain.ScanReport, error) {
	start := s.now()

	b, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	reports := analyzeEventsConcurrent(ctx, s, s.cfg.Events, b.bankroll, start, s.cfg.AnalysisWorkers)
	if err := ctx.Err(); err != nil {
		return reports, fmt.Errorf("scanner.RunCycle: %w", err)
	}

	s.emitAlerts(reports)

	opened, skipped := 0, 0
	for i := range reports {
		r := &reports[i]
		if r.Err != nil {
			skipped++
			s.metrics.RecordSkip(skipReason(r.Err))
			slog.Warn("event skipped", "event", r.Event.Slug, "err", r.Err)
		} else {
			s.process(ctx, r, b)
			opened += len(r.Opened)
		}
		if err := s.notifier.NotifyScan(ctx, *r); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	s.metrics.RecordOpenExposure(b.exposure)
	s.metrics.RecordScanDuration(time.Since(start))

	slog.Info("scan cycle complete",
		"events", len(reports),
		"skipped", skipped,
		"opened", opened,
		"bankroll", fmt.Sprintf("%.2f", b.bankroll),
		"exposure", fmt.Sprintf("%.2f", b.exposure),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return reports, nil
}

// loadBook calcula bankroll, exposición y posiciones abiertas a partir del ledger.
func (s *Scanner) loadBook(ctx context.Context) (*book, error) {
	positions, err := s.storage.GetAllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner.loadBook: %w", err)
	}
	st := ledger.ComputeStats(positions)
	b := &book{
		bankroll: s.cfg.StartingBankroll + st.TotalProfit,
		exposure: st.OpenCost,
		held:     make(map[string]bool),
	}
	for _, p := range positions {
		if p.IsOpen() {
			b.held[holdingKey(p.EventID, p.BucketID, p.Side)] = true
		}
	}
	return b, nil
}

// process registra métricas, persiste señales y abre posiciones para un evento evaluado.
func (s *Scanner) process(ctx context.Context, r *domain.ScanReport, b *book) {
	for _, sig := range r.Signals {
		s.metrics.RecordSignal(string(sig.Verdict))
	}
	if r.Alert != nil {
		s.metrics.RecordAlert(string(r.Alert.Kind))
	}
	if err := s.storage.SaveSignals(ctx, r.Signals); err != nil {
		slog.Warn("save signals failed", "event", r.Event.Slug, "err", err)
	}

	if !s.cfg.PaperTrade {
		return
	}

	inLadder := make(map[string]bool)
	if r.Ladder != nil {
		for _, leg := range r.Ladder.Legs {
			inLadder[leg.Signal.Bucket.ID] = true
		}
		s.openLadder(ctx, r, b)
	}

	for _, sig := range r.Signals {
		if sig.Verdict != domain.VerdictTrade || inLadder[sig.Bucket.ID] {
			continue
		}
		s.openSingle(ctx, r, sig, b)
	}
}

// openLadder abre todas las legs o ninguna.
func (s *Scanner) openLadder(ctx context.Context, r *domain.ScanReport, b *book) {
	plan := r.Ladder
	for _, leg := range plan.Legs {
		if b.held[holdingKey(r.Event.ID, leg.Signal.Bucket.ID, domain.SideYes)] {
			slog.Debug("ladder already held", "event", r.Event.Slug, "bucket", leg.Signal.Bucket.Label)
			return
		}
	}
	if err := s.guard.Allow(b.bankroll, b.exposure, plan.TotalCost); err != nil {
		s.metrics.RecordSkip("risk")
		slog.Warn("ladder refused", "event", r.Event.Slug, "cost", plan.TotalCost, "err", err)
		return
	}
	legs := make([]domain.Position, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		legs = append(legs, lifecycle.Open(r.Event, leg.Signal, leg.Shares, plan.ID, s.now()))
	}
	if err := s.storage.SaveLadder(ctx, *plan, legs); err != nil {
		slog.Warn("save ladder failed", "event", r.Event.Slug, "err", err)
		return
	}
	for _, pos := range legs {
		s.markOpened(r, pos, b)
	}
}

func (s *Scanner) openSingle(ctx context.Context, r *domain.ScanReport, sig domain.Signal, b *book) {
	if b.held[holdingKey(r.Event.ID, sig.Bucket.ID, sig.Direction)] {
		return
	}
	size := sizing.Kelly(s.sizing, sig.Edge, sig.Confidence, sig.Price, b.bankroll)
	if size <= 0 {
		return
	}
	if err := s.guard.Allow(b.bankroll, b.exposure, size); err != nil {
		s.metrics.RecordSkip("risk")
		slog.Warn("position refused", "event", r.Event.Slug, "bucket", sig.Bucket.Label, "size", size, "err", err)
		return
	}
	pos := lifecycle.Open(r.Event, sig, sizing.Shares(size, sig.Price), "", s.now())
	s.persistOpen(ctx, r, pos, b)
}

func (s *Scanner) persistOpen(ctx context.Context, r *domain.ScanReport, pos domain.Position, b *book) {
	if err := s.storage.SavePosition(ctx, pos); err != nil {
		slog.Warn("save position failed", "event", r.Event.Slug, "bucket", pos.Label, "err", err)
		return
	}
	s.markOpened(r, pos, b)
}

// markOpened actualiza el book y el reporte con una posición ya persistida.
func (s *Scanner) markOpened(r *domain.ScanReport, pos domain.Position, b *book) {
	b.exposure += pos.Cost
	b.held[holdingKey(pos.EventID, pos.BucketID, pos.Side)] = true
	r.Opened = append(r.Opened, pos)
	s.metrics.RecordPositionOpened(string(pos.Category))

	slog.Info("position opened",
		"event", pos.EventSlug,
		"bucket", pos.Label,
		"side", pos.Side,
		"entry", fmt.Sprintf("%.3f", pos.EntryPrice),
		"shares", fmt.Sprintf("%.2f", pos.Shares),
		"cost", fmt.Sprintf("$%.2f", pos.Cost),
		"ladder", pos.LadderID != "",
	)
}

// emitAlerts registra las alertas estructurales nuevas (no vistas en el ciclo anterior).
func (s *Scanner) emitAlerts(reports []domain.ScanReport) {
	current := make(map[string]bool, len(reports))
	for _, r := range reports {
		if r.Alert == nil {
			continue
		}
		current[r.Event.ID] = true
		if s.previousAlerts[r.Event.ID] {
			continue // ya conocida
		}
		slog.Warn("NEW SUM-TO-100 ALERT",
			"event", r.Event.Slug,
			"sum", fmt.Sprintf("%.3f", r.Alert.Sum),
			"deviation", fmt.Sprintf("%+.1f%%", r.Alert.Deviation*100),
			"kind", r.Alert.Kind,
		)
	}
	s.previousAlerts = current
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrInvalidBucketRange):
		return "invalid_buckets"
	case errors.Is(err, errEventClosed):
		return "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "fetch_error"
	}
}
