package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implementa ports.Metrics sobre Prometheus.
type Recorder struct {
	signals      *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	opened       *prometheus.CounterVec
	stops        *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	realizedPnL  prometheus.Gauge
	skips        *prometheus.CounterVec
	openExposure prometheus.Gauge
	scanDuration prometheus.Histogram
}

// New registra las métricas en reg. Con reg == nil usa el registry global.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_signals_total",
				Help: "Bucket signals evaluated, by verdict",
			},
			[]string{"verdict"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_structural_alerts_total",
				Help: "Sum-to-100 alerts raised, by kind",
			},
			[]string{"kind"},
		),
		opened: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_positions_opened_total",
				Help: "Paper positions opened, by category",
			},
			[]string{"category"},
		),
		stops: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_stops_total",
				Help: "Positions closed by a stop, by reason",
			},
			[]string{"reason"},
		),
		resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_resolutions_total",
				Help: "Positions reaching a terminal status, by status",
			},
			[]string{"status"},
		),
		realizedPnL: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecastedge_realized_pnl_usd",
			Help: "Cumulative realized PnL since process start",
		}),
		skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastedge_skipped_total",
				Help: "Events or positions skipped, by reason",
			},
			[]string{"reason"},
		),
		openExposure: f.NewGauge(prometheus.GaugeOpts{
			Name: "forecastedge_open_exposure_usd",
			Help: "Capital deployed in OPEN positions",
		}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecastedge_scan_duration_seconds",
			Help:    "Duration of a full scan cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) RecordSignal(verdict string) {
	r.signals.WithLabelValues(verdict).Inc()
}

func (r *Recorder) RecordAlert(kind string) {
	r.alerts.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordPositionOpened(category string) {
	r.opened.WithLabelValues(category).Inc()
}

func (r *Recorder) RecordStop(reason string) {
	r.stops.WithLabelValues(reason).Inc()
}

// RecordResolution cuenta el cierre y acumula su PnL.
func (r *Recorder) RecordResolution(status string, pnl float64) {
	r.resolutions.WithLabelValues(status).Inc()
	r.realizedPnL.Add(pnl)
}

func (r *Recorder) RecordSkip(reason string) {
	r.skips.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordOpenExposure(usd float64) {
	r.openExposure.Set(usd)
}

func (r *Recorder) RecordScanDuration(d time.Duration) {
	r.scanDuration.Observe(d.Seconds())
}

// Nop descarta todo. Se usa con metrics.enabled=false.
type Nop struct{}

func (Nop) RecordSignal(string)              {}
func (Nop) RecordAlert(string)               {}
func (Nop) RecordPositionOpened(string)      {}
func (Nop) RecordStop(string)                {}
func (Nop) RecordResolution(string, float64) {}
func (Nop) RecordSkip(string)                {}
func (Nop) RecordOpenExposure(float64)       {}
func (Nop) RecordScanDuration(time.Duration) {}
