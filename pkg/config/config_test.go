package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjpark/basketback/pkg/backtester"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "1d", cfg.Timeframe)
	assert.Equal(t, "sma_cross", cfg.Strategy)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "basketback.db", cfg.Storage.ResultsDB)
	assert.Equal(t, 100000.0, cfg.Backtest.InitialCapital)
	assert.True(t, cfg.Backtest.ExecuteOnNextOpen)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
symbols: [AAPL, MSFT]
strategy: buy_and_hold
start: "2020-01-01"
end: "2021-01-01"
max_workers: 4
backtest:
  initial_capital: 50000
  qty_pct_of_equity: 0.2
database:
  host: db.internal
storage:
  results_db: runs.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Symbols)
	assert.Equal(t, "buy_and_hold", cfg.Strategy)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 50000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.2, cfg.Backtest.QtyPctOfEquity)
	assert.Equal(t, 0.0005, cfg.Backtest.CommissionPct, "untouched fields keep their defaults")
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "runs.db", cfg.Storage.ResultsDB)
}

func TestLoadRejectsSameBarExecution(t *testing.T) {
	path := writeConfig(t, `
backtest:
  execute_on_next_open: false
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, backtester.ErrNextOpenRequired)
}

func TestLoadRejectsUnsortedTakeProfitLevels(t *testing.T) {
	path := writeConfig(t, `
backtest:
  take_profit_levels:
    - target_pct: 0.2
      exit_pct: 0.5
    - target_pct: 0.1
      exit_pct: 0.5
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
backtest:
  qty_pct_of_equity: 1.5
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoadEnvOverridesDatabase(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "envhost")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestDatabaseConnString(t *testing.T) {
	d := Database{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.ConnString())
}

func TestDateRange(t *testing.T) {
	cfg := &Config{Start: "2020-01-01", End: "2020-12-31"}
	start, end, err := cfg.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), end, "end date is inclusive")

	cfg = &Config{Start: "2020-12-31", End: "2020-01-01"}
	_, _, err = cfg.DateRange()
	assert.Error(t, err)

	cfg = &Config{Start: "01/01/2020", End: "2020-12-31"}
	_, _, err = cfg.DateRange()
	assert.Error(t, err)
}
