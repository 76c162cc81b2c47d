package main

import (
	"context"
	"flag"
	"strings"

	"github.com/joho/godotenv"

	"github.com/minjpark/basketback/internal/data"
	"github.com/minjpark/basketback/internal/store"
	"github.com/minjpark/basketback/pkg/backtester"
	"github.com/minjpark/basketback/pkg/config"
	"github.com/minjpark/basketback/pkg/logging"
	"github.com/minjpark/basketback/pkg/strategy"
	"github.com/minjpark/basketback/pkg/strategy/examples"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		symbolsFlag  = flag.String("symbols", "", "Symbols to backtest (comma-separated, e.g., AAPL,TSLA)")
		strategyFlag = flag.String("strategy", "", "Strategy to use")
		startDate    = flag.String("start", "", "Start date (YYYY-MM-DD)")
		endDate      = flag.String("end", "", "End date (YYYY-MM-DD)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Initialize(logging.DefaultConfig())
		logger := logging.GetLogger("main")
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Flags override the config file.
	if *symbolsFlag != "" {
		cfg.Symbols = splitSymbols(*symbolsFlag)
	}
	if *strategyFlag != "" {
		cfg.Strategy = *strategyFlag
	}
	if *startDate != "" {
		cfg.Start = *startDate
	}
	if *endDate != "" {
		cfg.End = *endDate
	}

	logging.Initialize(cfg.Logging)
	logger := logging.GetLogger("main")

	if envErr != nil {
		logger.Debug().Err(envErr).Msg("Could not load .env file, using system environment variables")
	}
	logger.Info().Msg("basketback backtester")

	if len(cfg.Symbols) == 0 {
		logger.Fatal().Msg("No symbols given; use -symbols or the config file")
	}
	start, end, err := cfg.DateRange()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid date range")
	}

	registry := strategy.NewRegistry()
	if err := examples.RegisterBuiltins(registry); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register strategies")
	}

	logger.Info().Msg("Connecting to database...")
	provider, err := data.NewPostgresProvider(cfg.Database.ConnString())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create data provider")
	}
	defer provider.Close()

	// Load each instrument's bars; a symbol that fails to load is excluded
	// with a reason, not fatal for the batch.
	instruments := make(map[string][]strategy.BarData, len(cfg.Symbols))
	var excluded []backtester.Exclusion
	for _, symbol := range cfg.Symbols {
		bars, err := provider.GetBars(symbol, cfg.Timeframe, start, end)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load bars")
			excluded = append(excluded, backtester.Exclusion{Symbol: symbol, Reason: err.Error()})
			continue
		}
		if len(bars) == 0 {
			logger.Warn().Str("symbol", symbol).Msg("No bars in range")
			excluded = append(excluded, backtester.Exclusion{Symbol: symbol, Reason: "no bars in range"})
			continue
		}
		instruments[symbol] = bars
	}
	if len(instruments) == 0 {
		logger.Fatal().Msg("No instruments with data; nothing to backtest")
	}

	logger.Info().
		Strs("symbols", cfg.Symbols).
		Str("strategy", cfg.Strategy).
		Str("start", cfg.Start).
		Str("end", cfg.End).
		Float64("initial_capital", cfg.Backtest.InitialCapital).
		Msg("Running backtest")

	orchestrator := backtester.NewOrchestrator(registry, cfg.Strategy, cfg.Backtest)
	basket, err := orchestrator.RunBasket(instruments, cfg.MaxWorkers)
	if err != nil {
		logger.Fatal().Err(err).Msg("Basket run failed")
	}
	basket.Excluded = append(basket.Excluded, excluded...)

	state, err := backtester.Aggregate(basket.Results, instruments, cfg.Backtest)
	if err != nil {
		logger.Fatal().Err(err).Msg("Portfolio aggregation failed")
	}

	results := backtester.BuildResults(cfg.Strategy, basket, state)
	logger.Info().Msg(results.Summary())

	resultStore, err := store.NewResultStore(cfg.Storage.ResultsDB)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open results store, skipping persistence")
		return
	}
	defer resultStore.Close()

	runID, err := resultStore.SaveRun(context.Background(), results)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist run")
		return
	}
	logger.Info().Int64("run_id", runID).Str("db", cfg.Storage.ResultsDB).Msg("Run persisted")
}

func splitSymbols(input string) []string {
	parts := strings.Split(strings.TrimSpace(input), ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
