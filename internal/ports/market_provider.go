package ports

import (
	"context"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// MarketProvider obtiene el snapshot de buckets de un evento.
type MarketProvider interface {
	// FetchEvent devuelve el evento con sus buckets, precios y, si el mercado
	// ya cerró, el outcome de cada bucket.
	FetchEvent(ctx context.Context, spec domain.EventSpec) (domain.Event, error)
}
