package backtester

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Results bundles everything one basket run produced: the shared-capital
// portfolio, windowed metrics for the portfolio and each instrument, and the
// exclusion list. Reporting layers consume it as plain tabular records.
type Results struct {
	StrategyName   string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalCapital   float64
	Portfolio      *PortfolioState
	Windows        []MetricsRow
	PerSymbol      map[string][]MetricsRow
	Excluded       []Exclusion
}

// BuildResults computes windowed metrics from a merged basket result and the
// aggregated portfolio.
func BuildResults(strategyName string, basket *BasketResult, state *PortfolioState) *Results {
	r := &Results{
		StrategyName:   strategyName,
		InitialCapital: state.InitialCapital,
		FinalCapital:   state.FinalEquity,
		Portfolio:      state,
		Windows:        ComputeAllWindows(state.Trades, state.Curve),
		PerSymbol:      make(map[string][]MetricsRow, len(basket.Results)),
		Excluded:       basket.Excluded,
	}
	if len(state.Curve) > 0 {
		r.StartDate = state.Curve[0].Date
		r.EndDate = state.Curve[len(state.Curve)-1].Date
	}
	for symbol, res := range basket.Results {
		r.PerSymbol[symbol] = ComputeSymbolWindows(res)
	}
	return r
}

// Summary returns a human-readable summary of the results
func (r *Results) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nBacktest Results for %s\n", r.StrategyName)
	fmt.Fprintf(&b, "=======================\n")
	fmt.Fprintf(&b, "Period: %s to %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Initial Capital: $%.2f\n", r.InitialCapital)
	fmt.Fprintf(&b, "Final Capital: $%.2f\n", r.FinalCapital)
	fmt.Fprintf(&b, "Trades: %d\n\n", len(r.Portfolio.Trades))

	fmt.Fprintf(&b, "%-6s %10s %10s %10s %8s %9s %9s %7s\n",
		"Window", "Net P&L %", "CAGR %", "Max DD %", "Trades", "Win %", "PF", "IRR %")
	for _, row := range r.Windows {
		fmt.Fprintf(&b, "%-6s %10.2f %10.2f %10.2f %8d %9.1f %9s %7s\n",
			row.Window,
			row.NetPLPct,
			row.CAGRPct,
			row.MaxDrawdownPct,
			row.TradeCount,
			row.WinRatePct,
			formatProfitFactor(row.ProfitFactor),
			formatPct(row.IRRPct),
		)
	}

	if len(r.Excluded) > 0 {
		fmt.Fprintf(&b, "\nExcluded symbols:\n")
		excluded := append([]Exclusion(nil), r.Excluded...)
		sort.Slice(excluded, func(i, j int) bool { return excluded[i].Symbol < excluded[j].Symbol })
		for _, e := range excluded {
			fmt.Fprintf(&b, "- %s: %s\n", e.Symbol, e.Reason)
		}
	}

	return b.String()
}

func formatProfitFactor(pf float64) string {
	switch {
	case math.IsInf(pf, 1):
		return "inf"
	case math.IsNaN(pf):
		return "undef"
	default:
		return fmt.Sprintf("%.2f", pf)
	}
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
