package polymarket

import "encoding/json"

// DTOs raw de la Gamma API. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// gammaEventsResponse es la respuesta de GET /events?slug=...
type gammaEventsResponse []gammaEvent

type gammaEvent struct {
	ID       string        `json:"id"`
	Slug     string        `json:"slug"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	EndDate  string        `json:"endDate"`
	Closed   bool          `json:"closed"`
	Tags     []gammaTag    `json:"tags"`
	Markets  []gammaMarket `json:"markets"`
}

type gammaTag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// gammaMarket es un bucket del evento. Gamma serializa outcomePrices como un
// string JSON ("[\"0.12\",\"0.88\"]") y algunos numéricos como strings.
type gammaMarket struct {
	ID             string      `json:"id"`
	ConditionID    string      `json:"conditionId"`
	Question       string      `json:"question"`
	GroupItemTitle string      `json:"groupItemTitle"`
	OutcomePrices  string      `json:"outcomePrices"`
	BestBid        json.Number `json:"bestBid"`
	BestAsk        json.Number `json:"bestAsk"`
	LiquidityNum   json.Number `json:"liquidityNum"`
	Closed         bool        `json:"closed"`
}
