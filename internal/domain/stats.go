package domain

// BreakdownStats aggregates terminal positions of one category, date or price tier.
type BreakdownStats struct {
	Key     string
	Trades  int
	Wins    int
	Losses  int
	Cost    float64
	Payout  float64
	Profit  float64
	WinRate float64
}

// Stats is the aggregate view over the ledger. Always recomputed from positions.
type Stats struct {
	Total    int // all positions, open included
	Open     int
	Resolved int
	Won      int
	Lost     int
	Stopped  int

	Wins    int // terminal positions with profit > 0
	Losses  int // terminal positions with profit <= 0
	WinRate float64

	TotalCost   float64
	TotalPayout float64
	TotalProfit float64
	OpenCost    float64 // capital still deployed

	AvgWin            float64
	AvgLoss           float64
	WinsNeededPerLoss float64 // |AvgLoss / AvgWin|

	ByCategory []BreakdownStats
	ByDate     []BreakdownStats
	ByTier     []BreakdownStats
}
