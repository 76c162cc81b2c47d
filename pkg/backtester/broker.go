package backtester

// CostModel applies deterministic commission and slippage to every fill.
// Slippage is a fixed tick offset against the fill in the adverse direction;
// commission is a percentage of the filled notional, charged on entry and
// exit alike.
type CostModel struct {
	commissionPct float64
	slippage      float64
}

// NewCostModel creates a cost model from the broker configuration.
func NewCostModel(cfg Config) *CostModel {
	return &CostModel{
		commissionPct: cfg.CommissionPct,
		slippage:      float64(cfg.SlippageTicks) * cfg.TickSize,
	}
}

// BuyPrice returns the effective fill price for a buy at price.
func (m *CostModel) BuyPrice(price float64) float64 {
	return price + m.slippage
}

// SellPrice returns the effective fill price for a sell at price.
func (m *CostModel) SellPrice(price float64) float64 {
	return price - m.slippage
}

// Commission returns the commission charged on a fill of qty at price.
func (m *CostModel) Commission(qty, price float64) float64 {
	return qty * price * m.commissionPct
}
