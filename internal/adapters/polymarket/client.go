package polymarket

import (
	"time"

	"github.com/alejandrodnm/forecastedge/internal/adapters/httpx"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Gamma /events: 500/10s documentados → 60% → 30/s
	gammaRatePerSec = 30
	gammaBurst      = 10
	requestTimeout  = 10 * time.Second
)

// Client es el client de la Gamma API de Polymarket con rate limiting y retries.
type Client struct {
	gamma     *httpx.Client
	gammaBase string
}

// NewClient crea un Client. Si gammaBase está vacío usa la URL de producción.
func NewClient(gammaBase string, opts ...httpx.Option) *Client {
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		gamma:     httpx.New("gamma", gammaRatePerSec, gammaBurst, requestTimeout, opts...),
		gammaBase: gammaBase,
	}
}
