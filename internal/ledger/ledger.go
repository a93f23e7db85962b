// Package ledger resolves positions against ground truth and reduces them to stats.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// WonBy reports whether a position on side wins when its bucket resolves to outcome.
// ok is false while the outcome is unknown.
func WonBy(side domain.Side, outcome domain.Outcome) (won, ok bool) {
	switch outcome {
	case domain.OutcomeYes:
		return side == domain.SideYes, true
	case domain.OutcomeNo:
		return side == domain.SideNo, true
	}
	return false, false
}

// Resolve applies a ground-truth outcome. A win pays 1 USDC per share.
// Terminal positions are returned unchanged with ErrAlreadyResolved.
func Resolve(pos domain.Position, won bool, at time.Time) (domain.Position, error) {
	if pos.Status.IsTerminal() {
		return pos, fmt.Errorf("ledger.Resolve %s (%s): %w", pos.ID, pos.Status, domain.ErrAlreadyResolved)
	}

	cost := decimal.NewFromFloat(pos.Cost)
	payout := decimal.Zero
	if won {
		payout = decimal.NewFromFloat(pos.Shares)
		pos.Status = domain.StatusWon
		pos.ExitReason = domain.ExitResolvedWin
		pos.ExitPrice = 1
	} else {
		pos.Status = domain.StatusLost
		pos.ExitReason = domain.ExitResolvedLoss
		pos.ExitPrice = 0
	}
	pos.Payout = payout.InexactFloat64()
	pos.RealizedPnL = payout.Sub(cost).InexactFloat64()
	resolvedAt := at
	pos.ResolvedAt = &resolvedAt
	return pos, nil
}

// ComputeStats reduces the ledger. Nothing is cached: the result depends only on positions.
func ComputeStats(positions []domain.Position) domain.Stats {
	var (
		st                         domain.Stats
		cost, payout, profit, open decimal.Decimal
		winSum, lossSum            decimal.Decimal
		byCat                      = map[string]*bucketAcc{}
		byDate                     = map[string]*bucketAcc{}
		byTier                     = map[string]*bucketAcc{}
	)

	for _, p := range positions {
		st.Total++
		if !p.Status.IsTerminal() {
			st.Open++
			open = open.Add(decimal.NewFromFloat(p.Cost))
			continue
		}

		st.Resolved++
		switch p.Status {
		case domain.StatusWon:
			st.Won++
		case domain.StatusLost:
			st.Lost++
		case domain.StatusStopped:
			st.Stopped++
		}

		pnl := decimal.NewFromFloat(p.RealizedPnL)
		if p.RealizedPnL > 0 {
			st.Wins++
			winSum = winSum.Add(pnl)
		} else {
			st.Losses++
			lossSum = lossSum.Add(pnl)
		}
		cost = cost.Add(decimal.NewFromFloat(p.Cost))
		payout = payout.Add(decimal.NewFromFloat(p.Payout))
		profit = profit.Add(pnl)

		accFor(byCat, string(p.Category)).add(p)
		accFor(byDate, p.EventDate.Format("2006-01-02")).add(p)
		accFor(byTier, Tier(p.EntryPrice)).add(p)
	}

	st.TotalCost = cost.InexactFloat64()
	st.TotalPayout = payout.InexactFloat64()
	st.TotalProfit = profit.InexactFloat64()
	st.OpenCost = open.InexactFloat64()
	if st.Resolved > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Resolved)
	}
	if st.Wins > 0 {
		st.AvgWin = winSum.Div(decimal.NewFromInt(int64(st.Wins))).InexactFloat64()
	}
	if st.Losses > 0 {
		st.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(st.Losses))).InexactFloat64()
	}
	if st.AvgWin > 0 {
		st.WinsNeededPerLoss = math.Abs(st.AvgLoss) / st.AvgWin
	}

	st.ByCategory = flatten(byCat)
	st.ByDate = flatten(byDate)
	st.ByTier = flatten(byTier)
	return st
}

// Tier buckets an entry price into 10¢ bands: 0.07 → "00-10¢", 0.96 → "90-100¢".
func Tier(price float64) string {
	lo := int(math.Floor(price*10+1e-9)) * 10
	lo = min(max(lo, 0), 90)
	return fmt.Sprintf("%02d-%02d¢", lo, lo+10)
}

type bucketAcc struct {
	key                  string
	trades, wins, losses int
	cost, payout, profit decimal.Decimal
}

func accFor(m map[string]*bucketAcc, key string) *bucketAcc {
	a, ok := m[key]
	if !ok {
		a = &bucketAcc{key: key}
		m[key] = a
	}
	return a
}

func (a *bucketAcc) add(p domain.Position) {
	a.trades++
	if p.RealizedPnL > 0 {
		a.wins++
	} else {
		a.losses++
	}
	a.cost = a.cost.Add(decimal.NewFromFloat(p.Cost))
	a.payout = a.payout.Add(decimal.NewFromFloat(p.Payout))
	a.profit = a.profit.Add(decimal.NewFromFloat(p.RealizedPnL))
}

func flatten(m map[string]*bucketAcc) []domain.BreakdownStats {
	out := make([]domain.BreakdownStats, 0, len(m))
	for _, a := range m {
		b := domain.BreakdownStats{
			Key:    a.key,
			Trades: a.trades,
			Wins:   a.wins,
			Losses: a.losses,
			Cost:   a.cost.InexactFloat64(),
			Payout: a.payout.InexactFloat64(),
			Profit: a.profit.InexactFloat64(),
		}
		if a.trades > 0 {
			b.WinRate = float64(a.wins) / float64(a.trades)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
