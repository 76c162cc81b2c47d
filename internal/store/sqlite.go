package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/minjpark/basketback/pkg/backtester"
)

// ResultStore persists completed basket runs to a SQLite database so
// reporting layers can query them as plain tabular records.
type ResultStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy        TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity    REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id           INTEGER NOT NULL REFERENCES runs(id),
	symbol           TEXT NOT NULL,
	entry_time       TEXT NOT NULL,
	entry_price      REAL NOT NULL,
	exit_time        TEXT NOT NULL,
	exit_price       REAL NOT NULL,
	qty              REAL NOT NULL,
	gross_pnl        REAL NOT NULL,
	commission_entry REAL NOT NULL,
	commission_exit  REAL NOT NULL,
	net_pnl          REAL NOT NULL,
	run_up           REAL NOT NULL,
	drawdown         REAL NOT NULL,
	holding_days     INTEGER NOT NULL,
	exit_reason      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id           INTEGER NOT NULL REFERENCES runs(id),
	scope            TEXT NOT NULL,
	"window"         TEXT NOT NULL,
	trade_count      INTEGER NOT NULL,
	net_pl_pct       REAL NOT NULL,
	cagr_pct         REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	profit_factor    REAL,
	win_rate_pct     REAL NOT NULL,
	irr_pct          REAL
);
CREATE TABLE IF NOT EXISTS equity (
	run_id       INTEGER NOT NULL REFERENCES runs(id),
	date         TEXT NOT NULL,
	equity       REAL NOT NULL,
	exposure_pct REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS exclusions (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	symbol TEXT NOT NULL,
	reason TEXT NOT NULL
);
`

// NewResultStore opens (or creates) the results database at path and
// ensures the schema exists.
func NewResultStore(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results schema: %w", err)
	}
	return &ResultStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// SaveRun persists one run: header, portfolio trades, windowed metrics for
// the portfolio and every symbol, the daily equity curve, and exclusions.
// Returns the run id.
func (s *ResultStore) SaveRun(ctx context.Context, results *backtester.Results) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (strategy, started_at, start_date, end_date, initial_capital, final_equity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		results.StrategyName,
		time.Now().UTC().Format(time.RFC3339),
		results.StartDate.Format("2006-01-02"),
		results.EndDate.Format("2006-01-02"),
		results.InitialCapital,
		results.FinalCapital,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, t := range results.Portfolio.Trades {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, symbol, entry_time, entry_price, exit_time, exit_price, qty,
			 gross_pnl, commission_entry, commission_exit, net_pnl, run_up, drawdown, holding_days, exit_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, t.Symbol,
			t.EntryTime.Format(time.RFC3339), t.EntryPrice,
			t.ExitTime.Format(time.RFC3339), t.ExitPrice,
			t.Qty, t.GrossPnL, t.CommissionEntry, t.CommissionExit, t.NetPnL,
			t.RunUp, t.Drawdown, t.HoldingDays, string(t.ExitReason),
		)
		if err != nil {
			return 0, fmt.Errorf("insert trade %s: %w", t.Symbol, err)
		}
	}

	if err := insertMetrics(ctx, tx, runID, "portfolio", results.Windows); err != nil {
		return 0, err
	}
	for symbol, rows := range results.PerSymbol {
		if err := insertMetrics(ctx, tx, runID, symbol, rows); err != nil {
			return 0, err
		}
	}

	for _, p := range results.Portfolio.Curve {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO equity (run_id, date, equity, exposure_pct) VALUES (?, ?, ?, ?)`,
			runID, p.Date.Format("2006-01-02"), p.Equity, p.ExposurePct,
		)
		if err != nil {
			return 0, fmt.Errorf("insert equity point: %w", err)
		}
	}

	for _, e := range results.Excluded {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO exclusions (run_id, symbol, reason) VALUES (?, ?, ?)`,
			runID, e.Symbol, e.Reason,
		)
		if err != nil {
			return 0, fmt.Errorf("insert exclusion %s: %w", e.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

func insertMetrics(ctx context.Context, tx *sql.Tx, runID int64, scope string, rows []backtester.MetricsRow) error {
	for _, row := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO metrics (run_id, scope, "window", trade_count, net_pl_pct, cagr_pct,
			 max_drawdown_pct, profit_factor, win_rate_pct, irr_pct)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, scope, string(row.Window), row.TradeCount,
			row.NetPLPct, row.CAGRPct, row.MaxDrawdownPct,
			nullableFloat(row.ProfitFactor), row.WinRatePct, nullableFloat(row.IRRPct),
		)
		if err != nil {
			return fmt.Errorf("insert metrics %s/%s: %w", scope, row.Window, err)
		}
	}
	return nil
}

// nullableFloat maps the NaN/Inf sentinels to SQL NULL.
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
