package data

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/minjpark/basketback/pkg/feed"
	"github.com/minjpark/basketback/pkg/strategy"
)

// PostgresProvider serves historical bars from a Postgres/TimescaleDB
// instance. It only reads; acquisition and caching of market data live
// outside this system.
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider opens a connection and verifies it is reachable.
func NewPostgresProvider(connString string) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresProvider{db: db}, nil
}

const barColumns = `symbol, ts, open, high, low, close, volume, timeframe`

// GetBars retrieves the bar series for a symbol in ascending timestamp
// order over [start, end].
func (p *PostgresProvider) GetBars(symbol, timeframe string, start, end time.Time) ([]strategy.BarData, error) {
	query := `
		SELECT ` + barColumns + `
		FROM bars
		WHERE symbol = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`
	rows, err := p.db.Query(query, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanBars(rows)
}

// GetLastBar gets the most recent bar for a symbol.
func (p *PostgresProvider) GetLastBar(symbol, timeframe string) (*strategy.BarData, error) {
	query := `
		SELECT ` + barColumns + `
		FROM bars
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT 1
	`
	var bar strategy.BarData
	err := p.db.QueryRow(query, symbol, timeframe).Scan(
		&bar.Symbol, &bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.Timeframe,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no data for symbol %s timeframe %s", symbol, timeframe)
	}
	if err != nil {
		return nil, fmt.Errorf("query last bar for %s: %w", symbol, err)
	}
	return &bar, nil
}

// GetBarsLimit gets the last N bars for a symbol in chronological order.
func (p *PostgresProvider) GetBarsLimit(symbol, timeframe string, limit int) ([]strategy.BarData, error) {
	query := `
		SELECT ` + barColumns + `
		FROM bars
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY ts DESC
		LIMIT $3
	`
	rows, err := p.db.Query(query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// ListSymbols returns the distinct symbols available for a timeframe.
func (p *PostgresProvider) ListSymbols(timeframe string) ([]string, error) {
	rows, err := p.db.Query(`SELECT DISTINCT symbol FROM bars WHERE timeframe = $1 ORDER BY symbol`, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

// Close closes the database connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}

func scanBars(rows *sql.Rows) ([]strategy.BarData, error) {
	var bars []strategy.BarData
	for rows.Next() {
		var bar strategy.BarData
		err := rows.Scan(
			&bar.Symbol, &bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.Timeframe,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}

// Verify that PostgresProvider implements the HistoricalDataProvider interface
var _ feed.HistoricalDataProvider = (*PostgresProvider)(nil)
