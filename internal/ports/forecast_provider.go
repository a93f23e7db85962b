package ports

import (
	"context"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// ForecastProvider supplies raw ensemble members or a deterministic value for an event date.
type ForecastProvider interface {
	// FetchForecast returns a Forecast with no samples and no deterministic value when
	// the provider has nothing for the date. Errors are reserved for I/O failures.
	FetchForecast(ctx context.Context, spec domain.EventSpec) (domain.Forecast, error)
}
