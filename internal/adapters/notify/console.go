package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// table=false imprime una línea compacta por evento.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyScan imprime el resultado de evaluar un evento.
func (c *Console) NotifyScan(_ context.Context, r domain.ScanReport) error {
	now := time.Now().Format("15:04:05")
	name := compactName(r.Event.Title, 45)
	if name == "" {
		name = r.Event.Slug
	}

	if r.Err != nil {
		fmt.Fprintf(c.out, "[%s] %s skipped: %v\n", now, name, r.Err)
		return nil
	}

	actionable := 0
	for _, s := range r.Signals {
		if s.Actionable() {
			actionable++
		}
	}

	if !c.table {
		c.printCompact(now, name, r, actionable)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] %s | μ=%.1f σ=%.2f conf=%.2f %s(%d) | %d/%d actionable\n",
		now, name, r.Distribution.Mean, r.Distribution.StdDev, r.Distribution.Confidence,
		strings.ToLower(string(r.Distribution.Provenance)), r.Distribution.MemberCount,
		actionable, len(r.Signals))

	if len(r.Signals) > 0 {
		c.printSignals(r.Signals)
	}
	if r.Alert != nil {
		fmt.Fprintf(c.out, "  !! sum-to-100: Σ=%.3f (%+.1f%%) %s\n",
			r.Alert.Sum, r.Alert.Deviation*100, r.Alert.Kind)
	}
	if r.Ladder != nil {
		fmt.Fprintf(c.out, "  ladder %s: %d legs, $%.2f / $%.2f\n",
			shortID(r.Ladder.ID), len(r.Ladder.Legs), r.Ladder.TotalCost, r.Ladder.Budget)
	}
	for _, p := range r.Opened {
		fmt.Fprintf(c.out, "  + %s %s %s @ %.3f × %.1f = $%.2f\n",
			p.Side, p.Label, p.Category, p.EntryPrice, p.Shares, p.Cost)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(now, name string, r domain.ScanReport, actionable int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s μ=%.1f conf=%.2f | %d signals", now, name,
		r.Distribution.Mean, r.Distribution.Confidence, actionable)

	shown := 0
	for _, s := range r.Signals {
		if !s.Actionable() || shown >= 3 {
			continue
		}
		fmt.Fprintf(&sb, " | %s %s p=%.2f @%.2f %+.2f", s.Verdict, s.Bucket.Label,
			s.Probability, s.Price, s.Edge)
		shown++
	}
	if r.Alert != nil {
		fmt.Fprintf(&sb, " | Σ%+.0f%% %s", r.Alert.Deviation*100, r.Alert.Kind)
	}
	if len(r.Opened) > 0 {
		fmt.Fprintf(&sb, " | +%d pos", len(r.Opened))
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printSignals(signals []domain.Signal) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Bucket", "P(model)", "Yes", "No", "Edge Y", "Edge N", "Side", "Verdict")
	for _, s := range signals {
		table.Append(
			s.Bucket.Label,
			fmt.Sprintf("%.3f", s.Probability),
			fmt.Sprintf("%.3f", s.Bucket.PriceYes),
			fmt.Sprintf("%.3f", s.Bucket.PriceNo),
			fmt.Sprintf("%+.3f", s.EdgeYes),
			fmt.Sprintf("%+.3f", s.EdgeNo),
			string(s.Direction),
			string(s.Verdict),
		)
	}
	table.Render()
}

// NotifyTransitions imprime las posiciones cerradas en el ciclo.
func (c *Console) NotifyTransitions(_ context.Context, closed []domain.Position) error {
	if len(closed) == 0 {
		return nil
	}
	now := time.Now().Format("15:04:05")
	for _, p := range closed {
		fmt.Fprintf(c.out, "[%s] %s %s %s %s: %.3f → %.3f pnl $%+.2f\n",
			now, p.Status, p.ExitReason, compactName(p.EventSlug, 30), p.Label,
			p.EntryPrice, p.ExitPrice, p.RealizedPnL)
	}
	return nil
}

// PrintStats imprime el resumen del ledger con desgloses por categoría, fecha y tier.
func (c *Console) PrintStats(st domain.Stats) error {
	fmt.Fprintf(c.out, "\n=== LEDGER ===\n")
	fmt.Fprintf(c.out, "positions: %d (open %d, won %d, lost %d, stopped %d)\n",
		st.Total, st.Open, st.Won, st.Lost, st.Stopped)
	if st.Resolved == 0 {
		fmt.Fprintf(c.out, "no resolved positions yet | open cost $%.2f\n", st.OpenCost)
		return nil
	}
	fmt.Fprintf(c.out, "win rate %.1f%% (%d/%d) | cost $%.2f | payout $%.2f | pnl $%+.2f | open cost $%.2f\n",
		st.WinRate*100, st.Wins, st.Resolved, st.TotalCost, st.TotalPayout, st.TotalProfit, st.OpenCost)
	fmt.Fprintf(c.out, "avg win $%.2f | avg loss $%.2f | wins needed per loss %.2f\n",
		st.AvgWin, st.AvgLoss, st.WinsNeededPerLoss)

	c.printBreakdown("Category", st.ByCategory)
	c.printBreakdown("Date", st.ByDate)
	c.printBreakdown("Tier", st.ByTier)
	return nil
}

func (c *Console) printBreakdown(title string, rows []domain.BreakdownStats) {
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header(title, "Trades", "W", "L", "Win%", "Cost", "PnL")
	for _, b := range rows {
		table.Append(
			b.Key,
			fmt.Sprintf("%d", b.Trades),
			fmt.Sprintf("%d", b.Wins),
			fmt.Sprintf("%d", b.Losses),
			fmt.Sprintf("%.0f%%", b.WinRate*100),
			fmt.Sprintf("$%.2f", b.Cost),
			fmt.Sprintf("$%+.2f", b.Profit),
		)
	}
	table.Render()
}

// compactName recorta s a max runas añadiendo "...".
func compactName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PrintSignals imprime el histórico de señales accionables.
func (c *Console) PrintSignals(signals []domain.Signal) {
	if len(signals) == 0 {
		fmt.Fprintln(c.out, "no signals recorded in range")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Event", "Bucket", "Side", "P(model)", "Price", "Edge", "Verdict")
	for _, s := range signals {
		table.Append(
			s.CreatedAt.Local().Format("01-02 15:04"),
			shortID(s.EventID),
			s.Bucket.Label,
			string(s.Direction),
			fmt.Sprintf("%.3f", s.Probability),
			fmt.Sprintf("%.3f", s.Price),
			fmt.Sprintf("%+.3f", s.Edge),
			string(s.Verdict),
		)
	}
	table.Render()
}
