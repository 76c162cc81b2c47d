package backtester

import (
	"errors"
	"fmt"
)

// ErrNextOpenRequired is returned when a run is attempted with fills
// configured at the signal bar instead of the next bar's open.
var ErrNextOpenRequired = errors.New("execute_on_next_open must be true: fills at the signal bar would look ahead")

// TakeProfitLevel is one tier of the take-profit ladder. TargetPct is the
// gain over the volume-weighted entry price that arms the tier; ExitPct is
// the fraction of the open quantity closed when the bar high reaches it.
type TakeProfitLevel struct {
	TargetPct float64 `yaml:"target_pct" validate:"gt=0"`
	ExitPct   float64 `yaml:"exit_pct" validate:"gt=0,lte=1"`
}

// Config is the static broker configuration read once at run start.
type Config struct {
	InitialCapital    float64           `yaml:"initial_capital" default:"100000" validate:"gt=0"`
	QtyPctOfEquity    float64           `yaml:"qty_pct_of_equity" default:"0.1" validate:"gt=0,lte=1"`
	CommissionPct     float64           `yaml:"commission_pct" default:"0.0005" validate:"gte=0"`
	SlippageTicks     int               `yaml:"slippage_ticks" validate:"gte=0"`
	TickSize          float64           `yaml:"tick_size" default:"0.01" validate:"gt=0"`
	MaxPyramidLevels  int               `yaml:"max_pyramid_levels" default:"1" validate:"gte=1"`
	ExecuteOnNextOpen bool              `yaml:"execute_on_next_open"`
	MaxBarsHeld       int               `yaml:"max_bars_held" validate:"gte=0"` // 0 disables the time stop
	TakeProfitLevels  []TakeProfitLevel `yaml:"take_profit_levels" validate:"dive"`
}

// DefaultConfig returns the broker configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		InitialCapital:    100000,
		QtyPctOfEquity:    0.1,
		CommissionPct:     0.0005,
		TickSize:          0.01,
		MaxPyramidLevels:  1,
		ExecuteOnNextOpen: true,
	}
}

// Validate checks the invariants that the struct tags cannot express.
// Take-profit tiers must be sorted ascending so the lowest target fires
// first when a single bar sweeps several tiers.
func (c Config) Validate() error {
	if !c.ExecuteOnNextOpen {
		return ErrNextOpenRequired
	}
	for i := 1; i < len(c.TakeProfitLevels); i++ {
		if c.TakeProfitLevels[i].TargetPct <= c.TakeProfitLevels[i-1].TargetPct {
			return fmt.Errorf("take_profit_levels must have strictly increasing targets, level %d does not", i)
		}
	}
	return nil
}
