package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"trade-automator/src/helpers"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

type SQLiteTriggerStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteTriggerStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteTriggerStore, error) {
	return &SQLiteTriggerStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return &helpers.StoreError{AutomatorError: helpers.AutomatorError{Message: "failed to open database", Cause: err}}
	}

	if err := db.Ping(); err != nil {
		return &helpers.StoreError{AutomatorError: helpers.AutomatorError{Message: "database unreachable", Cause: err}}
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Trigger claims race on the primary key; a single writer keeps
	// INSERT OR IGNORE deterministic.
	db.SetMaxOpenConns(1)

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) createTables() error {
	// SQLite types: INTEGER for int64, TEXT for strings and decimals
	query := `
		CREATE TABLE IF NOT EXISTS trigger_records (
			strategy_id TEXT,
			period_start_unix INTEGER,
			symbol TEXT,
			direction TEXT,
			price TEXT,
			spread TEXT,
			threshold TEXT,
			status TEXT,
			fail_reason TEXT,
			order_id TEXT,
			fired_at TIMESTAMP,
			realized_pnl TEXT,
			winner_outcome TEXT,
			PRIMARY KEY (strategy_id, period_start_unix)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trigger_records: %w", err)
	}

	query = `
		CREATE INDEX IF NOT EXISTS trigger_records_period_idx
		ON trigger_records (period_start_unix);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create period index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// InsertIfAbsent writes the record only if no record exists for the same
// (strategy, period). Returns true when this call claimed the period.
func (d *SQLiteTriggerStore) InsertIfAbsent(record models.MTriggerRecord) (bool, error) {
	query := `
		INSERT OR IGNORE INTO trigger_records
			(strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
			 status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := d.DB.Exec(query,
		record.StrategyID, record.PeriodStartUnix, record.Symbol, record.Direction,
		record.Price.String(), record.Spread.String(), record.Threshold.String(),
		record.Status, record.FailReason, record.OrderID, record.FiredAt.UTC(),
		record.RealizedPnl.String(), record.WinnerOutcome)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) Update(record models.MTriggerRecord) error {
	query := `
		UPDATE trigger_records SET
			symbol = ?, direction = ?, price = ?, spread = ?, threshold = ?,
			status = ?, fail_reason = ?, order_id = ?, fired_at = ?,
			realized_pnl = ?, winner_outcome = ?
		WHERE strategy_id = ? AND period_start_unix = ?
	`

	_, err := d.DB.Exec(query,
		record.Symbol, record.Direction,
		record.Price.String(), record.Spread.String(), record.Threshold.String(),
		record.Status, record.FailReason, record.OrderID, record.FiredAt.UTC(),
		record.RealizedPnl.String(), record.WinnerOutcome,
		record.StrategyID, record.PeriodStartUnix)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) ListByPeriod(periodStartUnix int64) ([]models.MTriggerRecord, error) {
	query := `
		SELECT strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
		       status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome
		FROM trigger_records
		WHERE period_start_unix = ?
		ORDER BY strategy_id
	`

	rows, err := d.DB.Query(query, periodStartUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) ListUnsettled(before int64) ([]models.MTriggerRecord, error) {
	query := `
		SELECT strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
		       status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome
		FROM trigger_records
		WHERE status = ? AND period_start_unix < ?
		ORDER BY period_start_unix
	`

	rows, err := d.DB.Query(query, models.TriggerStatusFired, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// -----------------------------------------------------------------------------

// CleanupOldData drops settled records beyond the retention horizon so the
// file does not grow without bound on long-lived deployments.
func (d *SQLiteTriggerStore) CleanupOldData(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	if _, err := d.DB.Exec(
		"DELETE FROM trigger_records WHERE status = ? AND period_start_unix < ?",
		models.TriggerStatusSettled, cutoff); err != nil {
		d.Logger.Error("Cleanup trigger_records error: %v", err)
		return err
	}

	d.Logger.Info("Cleanup completed (cutoff %d)", cutoff)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTriggerStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
