package ports

import (
	"context"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// Notifier presenta los resultados al usuario.
type Notifier interface {
	// NotifyScan muestra las señales, alertas y posiciones abiertas de un evento.
	NotifyScan(ctx context.Context, report domain.ScanReport) error

	// NotifyTransitions muestra los stops y resoluciones de un ciclo.
	NotifyTransitions(ctx context.Context, closed []domain.Position) error

	// PrintStats muestra las estadísticas agregadas del ledger.
	PrintStats(stats domain.Stats) error
}
