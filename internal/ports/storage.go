package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// LedgerStorage persiste señales, ladders y el ciclo de vida de las posiciones.
type LedgerStorage interface {
	// SaveSignals registra las señales de un ciclo (solo observabilidad).
	SaveSignals(ctx context.Context, signals []domain.Signal) error

	// SaveLadder persiste un LadderPlan y las posiciones de sus legs de forma atómica.
	SaveLadder(ctx context.Context, plan domain.LadderPlan, legs []domain.Position) error

	// SavePosition inserta una posición recién abierta.
	SavePosition(ctx context.Context, pos domain.Position) error

	// UpdatePositionStop persiste el StopState y, si el tick la cerró, el estado STOPPED.
	UpdatePositionStop(ctx context.Context, pos domain.Position) error

	// ResolvePosition aplica la resolución solo si la posición sigue OPEN.
	// Devuelve false cuando ya era terminal (no-op).
	ResolvePosition(ctx context.Context, pos domain.Position) (bool, error)

	GetOpenPositions(ctx context.Context) ([]domain.Position, error)
	GetAllPositions(ctx context.Context) ([]domain.Position, error)

	// GetSignals devuelve las señales registradas en el rango dado.
	GetSignals(ctx context.Context, from, to time.Time) ([]domain.Signal, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
