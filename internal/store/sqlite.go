// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	apperrors "market-scout/internal/errors"
	"market-scout/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Bars cache for historical OHLCV data
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		range_key TEXT NOT NULL,
		date DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, range_key, date)
	);

	-- Alert rules
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		symbol TEXT NOT NULL,
		condition TEXT NOT NULL,
		target_price REAL DEFAULT 0,
		threshold REAL DEFAULT 0,
		triggered INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		triggered_at DATETIME
	);

	-- Tracked signals with realized outcomes
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		entry_at DATETIME NOT NULL,
		metadata TEXT,
		completed INTEGER DEFAULT 0,
		exit_price REAL,
		profit REAL,
		profit_percent REAL,
		completed_at DATETIME
	);

	-- Per-feature daily usage counters
	CREATE TABLE IF NOT EXISTS usage (
		date TEXT NOT NULL,
		feature TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(date, feature)
	);

	-- Watchlist
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes for lookup paths
	CREATE INDEX IF NOT EXISTS idx_bars_symbol_range ON bars(symbol, range_key);
	CREATE INDEX IF NOT EXISTS idx_alerts_type_triggered ON alerts(type, triggered);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_kind ON signals(kind);
	CREATE INDEX IF NOT EXISTS idx_signals_completed ON signals(completed);
	CREATE INDEX IF NOT EXISTS idx_usage_date ON usage(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Bars Methods
// ============================================================================

// SaveBars saves historical bars to the cache.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol, rng string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, range_key, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, rng, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBars retrieves cached bars, most-recent-first.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND range_key = ?
		ORDER BY date DESC
	`, symbol, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// GetBarsFreshness returns the insertion time of the most recent cached bar.
func (s *SQLiteStore) GetBarsFreshness(ctx context.Context, symbol, rng string) (time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM bars WHERE symbol = ? AND range_key = ?
	`, symbol, rng).Scan(&ts)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get bars freshness: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

// ============================================================================
// Alert Methods
// ============================================================================

// SaveAlert upserts an alert rule.
func (s *SQLiteStore) SaveAlert(ctx context.Context, rule *models.AlertRule) error {
	triggered := 0
	if rule.Triggered {
		triggered = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (id, type, symbol, condition, target_price, threshold, triggered, created_at, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, string(rule.Type), rule.Symbol, rule.Condition, rule.TargetPrice, rule.Threshold, triggered, rule.CreatedAt, rule.TriggeredAt)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// GetAlert retrieves a single alert rule by id.
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.AlertRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, symbol, condition, target_price, threshold, triggered, created_at, triggered_at
		FROM alerts WHERE id = ?
	`, id)

	rule, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return rule, nil
}

// GetAlerts retrieves all alert rules, newest first.
func (s *SQLiteStore) GetAlerts(ctx context.Context) ([]models.AlertRule, error) {
	return s.queryAlerts(ctx, `
		SELECT id, type, symbol, condition, target_price, threshold, triggered, created_at, triggered_at
		FROM alerts ORDER BY created_at DESC
	`)
}

// GetPendingAlerts retrieves untriggered rules of the given type.
func (s *SQLiteStore) GetPendingAlerts(ctx context.Context, alertType models.AlertType) ([]models.AlertRule, error) {
	return s.queryAlerts(ctx, `
		SELECT id, type, symbol, condition, target_price, threshold, triggered, created_at, triggered_at
		FROM alerts WHERE type = ? AND triggered = 0 ORDER BY created_at ASC
	`, string(alertType))
}

func (s *SQLiteStore) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		rule, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return rules, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.AlertRule, error) {
	var rule models.AlertRule
	var alertType string
	var triggered int
	var triggeredAt sql.NullTime

	err := row.Scan(&rule.ID, &alertType, &rule.Symbol, &rule.Condition, &rule.TargetPrice, &rule.Threshold, &triggered, &rule.CreatedAt, &triggeredAt)
	if err != nil {
		return nil, err
	}

	rule.Type = models.AlertType(alertType)
	rule.Triggered = triggered != 0
	if triggeredAt.Valid {
		t := triggeredAt.Time
		rule.TriggeredAt = &t
	}
	return &rule, nil
}

// TriggerAlert marks a pending rule as triggered at the given time.
// Already-triggered rules are left untouched.
func (s *SQLiteStore) TriggerAlert(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET triggered = 1, triggered_at = ? WHERE id = ? AND triggered = 0
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to trigger alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrDataNotFound
	}
	return nil
}

// DeleteAlert removes an alert rule in any state.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrDataNotFound
	}
	return nil
}

// ============================================================================
// Signal Methods
// ============================================================================

// SaveSignal inserts a tracked signal.
func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *models.TrackedSignal) error {
	metadata, _ := json.Marshal(sig.Metadata)
	completed := 0
	if sig.Completed {
		completed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals (id, kind, symbol, entry_price, entry_at, metadata, completed, exit_price, profit, profit_percent, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sig.ID, string(sig.Kind), sig.Symbol, sig.EntryPrice, sig.EntryAt, string(metadata), completed, sig.ExitPrice, sig.Profit, sig.ProfitPercent, sig.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// GetSignal retrieves a tracked signal by id.
func (s *SQLiteStore) GetSignal(ctx context.Context, id string) (*models.TrackedSignal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, symbol, entry_price, entry_at, metadata, completed, exit_price, profit, profit_percent, completed_at
		FROM signals WHERE id = ?
	`, id)

	sig, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return sig, nil
}

// GetSignals retrieves tracked signals matching the filter, newest first.
func (s *SQLiteStore) GetSignals(ctx context.Context, filter SignalFilter) ([]models.TrackedSignal, error) {
	query := `SELECT id, kind, symbol, entry_price, entry_at, metadata, completed, exit_price, profit, profit_percent, completed_at FROM signals WHERE 1=1`
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Completed != nil {
		completed := 0
		if *filter.Completed {
			completed = 1
		}
		query += " AND completed = ?"
		args = append(args, completed)
	}
	query += " ORDER BY entry_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var sigs []models.TrackedSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sigs = append(sigs, *sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return sigs, nil
}

func scanSignal(row rowScanner) (*models.TrackedSignal, error) {
	var sig models.TrackedSignal
	var kind, metadata string
	var completed int
	var exitPrice, profit, profitPercent sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(&sig.ID, &kind, &sig.Symbol, &sig.EntryPrice, &sig.EntryAt, &metadata, &completed, &exitPrice, &profit, &profitPercent, &completedAt)
	if err != nil {
		return nil, err
	}

	sig.Kind = models.SignalKind(kind)
	sig.Completed = completed != 0
	if metadata != "" && metadata != "null" {
		json.Unmarshal([]byte(metadata), &sig.Metadata)
	}
	if exitPrice.Valid {
		sig.ExitPrice = exitPrice.Float64
	}
	if profit.Valid {
		sig.Profit = profit.Float64
	}
	if profitPercent.Valid {
		sig.ProfitPercent = profitPercent.Float64
	}
	if completedAt.Valid {
		t := completedAt.Time
		sig.CompletedAt = &t
	}
	return &sig, nil
}

// CompleteSignal records the realized outcome of a pending signal.
// Already-completed signals are left untouched.
func (s *SQLiteStore) CompleteSignal(ctx context.Context, id string, exitPrice, profit, profitPercent float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE signals SET completed = 1, exit_price = ?, profit = ?, profit_percent = ?, completed_at = ?
		WHERE id = ? AND completed = 0
	`, exitPrice, profit, profitPercent, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete signal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrDataNotFound
	}
	return nil
}

// ============================================================================
// Usage Methods
// ============================================================================

// IncrementUsage increments the per-feature counter for the given day.
func (s *SQLiteStore) IncrementUsage(ctx context.Context, date, feature string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage (date, feature, count) VALUES (?, ?, 1)
		ON CONFLICT(date, feature) DO UPDATE SET count = count + 1
	`, date, feature)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// GetUsage returns per-day usage records for the most recent N days present,
// newest first.
func (s *SQLiteStore) GetUsage(ctx context.Context, lastN int) ([]models.DailyUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, feature, count FROM usage
		WHERE date IN (SELECT DISTINCT date FROM usage ORDER BY date DESC LIMIT ?)
		ORDER BY date DESC
	`, lastN)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []models.DailyUsage
	byDate := make(map[string]*models.DailyUsage)

	for rows.Next() {
		var date, feature string
		var count int
		if err := rows.Scan(&date, &feature, &count); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}

		rec, ok := byDate[date]
		if !ok {
			records = append(records, models.DailyUsage{Date: date, Counts: make(map[string]int)})
			rec = &records[len(records)-1]
			byDate[date] = rec
		}
		rec.Counts[feature] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}

	return records, nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to the watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol) VALUES (?)
	`, symbol)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// GetWatchlist returns all watchlist symbols.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return symbols, nil
}
