package ports

import "time"

// Metrics records engine activity. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordSignal(verdict string)
	RecordAlert(kind string)
	RecordPositionOpened(category string)
	RecordStop(reason string)
	RecordResolution(status string, pnl float64)
	RecordSkip(reason string)
	RecordOpenExposure(usd float64)
	RecordScanDuration(d time.Duration)
}
