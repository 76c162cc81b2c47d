package feed

import (
	"time"

	"github.com/minjpark/basketback/pkg/strategy"
)

// HistoricalDataProvider defines the interface for historical data sources.
// Providers return one clean, ascending series per instrument; the engine
// validates the invariants and fails that instrument if they are violated.
type HistoricalDataProvider interface {
	// GetBars retrieves historical OHLCV data for the given parameters
	GetBars(symbol string, timeframe string, start time.Time, end time.Time) ([]strategy.BarData, error)

	// GetLastBar gets the most recent bar for a symbol
	GetLastBar(symbol string, timeframe string) (*strategy.BarData, error)

	// GetBarsLimit gets the last N bars for a symbol
	GetBarsLimit(symbol string, timeframe string, limit int) ([]strategy.BarData, error)
}
