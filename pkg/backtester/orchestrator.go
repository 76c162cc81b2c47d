package backtester

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/minjpark/basketback/pkg/logging"
	"github.com/minjpark/basketback/pkg/strategy"
)

// Exclusion records an instrument dropped from a basket run together with
// the reason. A batch never drops a symbol silently.
type Exclusion struct {
	Symbol string
	Reason string
}

// BasketResult is the merged output of a basket run: one result per
// surviving instrument plus the list of excluded instruments.
type BasketResult struct {
	Results  map[string]*InstrumentResult
	Excluded []Exclusion
}

// Orchestrator fans single-instrument backtests out across a worker pool
// and merges the results after a full join. Each worker owns its own
// strategy instance and bar slice; nothing is shared between tasks.
type Orchestrator struct {
	registry     *strategy.Registry
	strategyName string
	cfg          Config
	logger       zerolog.Logger
}

// NewOrchestrator creates an orchestrator resolving strategies from the
// given registry. The registry is passed in explicitly at run start; there
// is no process-wide lookup.
func NewOrchestrator(registry *strategy.Registry, strategyName string, cfg Config) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		strategyName: strategyName,
		cfg:          cfg,
		logger:       logging.GetLogger("orchestrator"),
	}
}

// RunBasket backtests every instrument and merges results by symbol. A
// failure on one instrument — bad data, a strategy error, or a panic such as
// a lookahead violation — is logged, recorded as an exclusion, and never
// aborts the batch. Ordering across instruments is irrelevant downstream;
// within one instrument trades stay ordered by entry time.
func (o *Orchestrator) RunBasket(instruments map[string][]strategy.BarData, maxWorkers int) (*BasketResult, error) {
	factory, err := o.registry.Get(o.strategyName)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(instruments))
	for symbol := range instruments {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	results := make([]*InstrumentResult, len(symbols))
	errs := make([]error, len(symbols))
	tasks := make([]func(), len(symbols))
	for i, symbol := range symbols {
		i, symbol := i, symbol
		bars := instruments[symbol]
		tasks[i] = func() {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			strat, err := factory(symbol)
			if err != nil {
				errs[i] = fmt.Errorf("create strategy: %w", err)
				return
			}
			results[i], errs[i] = NewEngine(strat, o.cfg).Run(bars)
		}
	}

	executor := NewExecutor(maxWorkers, len(tasks))
	o.logger.Info().
		Int("instruments", len(symbols)).
		Str("executor", executor.Name()).
		Str("strategy", o.strategyName).
		Msg("Starting basket run")
	executor.Execute(tasks)

	merged := &BasketResult{Results: make(map[string]*InstrumentResult, len(symbols))}
	for i, symbol := range symbols {
		if errs[i] != nil {
			o.logger.Error().Err(errs[i]).Str("symbol", symbol).Msg("Instrument excluded from basket")
			merged.Excluded = append(merged.Excluded, Exclusion{Symbol: symbol, Reason: errs[i].Error()})
			continue
		}
		merged.Results[symbol] = results[i]
	}
	o.logger.Info().
		Int("succeeded", len(merged.Results)).
		Int("excluded", len(merged.Excluded)).
		Msg("Basket run completed")
	return merged, nil
}
