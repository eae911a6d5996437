package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"trade-automator/src/helpers"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

type PostgresTriggerStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresTriggerStore(cfg *models.MConfig, log *logger.Logger) (*PostgresTriggerStore, error) {
	// Use the executable name for schema isolation between deployments
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresTriggerStore{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTriggerStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return &helpers.StoreError{AutomatorError: helpers.AutomatorError{Message: "failed to open database", Cause: err}}
	}

	// The database may come up after the service; give it a few attempts.
	if _, err := helpers.RetryWithBackoff("database ping", 3, 2*time.Second, func() (interface{}, error) {
		return nil, db.Ping()
	}); err != nil {
		return &helpers.StoreError{AutomatorError: helpers.AutomatorError{Message: "database unreachable", Cause: err}}
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresTriggerStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTriggerStore) createTables() error {
	// Trigger records carry money values; NUMERIC keeps them exact.
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."trigger_records" (
			strategy_id TEXT,
			period_start_unix BIGINT,
			symbol TEXT,
			direction TEXT,
			price NUMERIC,
			spread NUMERIC,
			threshold NUMERIC,
			status TEXT,
			fail_reason TEXT,
			order_id TEXT,
			fired_at TIMESTAMP,
			realized_pnl NUMERIC,
			winner_outcome TEXT,
			PRIMARY KEY (strategy_id, period_start_unix)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trigger_records: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS trigger_records_period_idx
		ON "%s"."trigger_records" (period_start_unix);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create period index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// InsertIfAbsent writes the record only if no record exists for the same
// (strategy, period). Returns true when this call claimed the period.
func (d *PostgresTriggerStore) InsertIfAbsent(record models.MTriggerRecord) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."trigger_records"
			(strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
			 status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (strategy_id, period_start_unix) DO NOTHING
	`, d.Schema)

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

func (d *PostgresTriggerStore) Update(record models.MTriggerRecord) error {
	query := fmt.Sprintf(`
		UPDATE "%s"."trigger_records" SET
			symbol = $3, direction = $4, price = $5, spread = $6, threshold = $7,
			status = $8, fail_reason = $9, order_id = $10, fired_at = $11,
			realized_pnl = $12, winner_outcome = $13
		WHERE strategy_id = $1 AND period_start_unix = $2
	`, d.Schema)

	_, err := d.DB.Exec(query,
		record.StrategyID, record.PeriodStartUnix, record.Symbol, record.Direction,
		record.Price.String(), record.Spread.String(), record.Threshold.String(),
		record.Status, record.FailReason, record.OrderID, record.FiredAt.UTC(),
		record.RealizedPnl.String(), record.WinnerOutcome)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresTriggerStore) ListByPeriod(periodStartUnix int64) ([]models.MTriggerRecord, error) {
	query := fmt.Sprintf(`
		SELECT strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
		       status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome
		FROM "%s"."trigger_records"
		WHERE period_start_unix = $1
		ORDER BY strategy_id
	`, d.Schema)

	rows, err := d.DB.Query(query, periodStartUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// -----------------------------------------------------------------------------

// ListUnsettled returns fired records older than `before` still awaiting
// settlement.
func (d *PostgresTriggerStore) ListUnsettled(before int64) ([]models.MTriggerRecord, error) {
	query := fmt.Sprintf(`
		SELECT strategy_id, period_start_unix, symbol, direction, price, spread, threshold,
		       status, fail_reason, order_id, fired_at, realized_pnl, winner_outcome
		FROM "%s"."trigger_records"
		WHERE status = $1 AND period_start_unix < $2
		ORDER BY period_start_unix
	`, d.Schema)

	rows, err := d.DB.Query(query, models.TriggerStatusFired, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresTriggerStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// scanTriggerRows is shared with the SQLite store; both selects use the same
// column order.
func scanTriggerRows(rows *sql.Rows) ([]models.MTriggerRecord, error) {
	var records []models.MTriggerRecord

	for rows.Next() {
		var r models.MTriggerRecord
		var price, spread, threshold, realizedPnl string
		var firedAt time.Time

		if err := rows.Scan(&r.StrategyID, &r.PeriodStartUnix, &r.Symbol, &r.Direction,
			&price, &spread, &threshold, &r.Status, &r.FailReason, &r.OrderID,
			&firedAt, &realizedPnl, &r.WinnerOutcome); err != nil {
			return nil, err
		}

		var err error
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price value %q: %w", price, err)
		}
		if r.Spread, err = decimal.NewFromString(spread); err != nil {
			return nil, fmt.Errorf("bad spread value %q: %w", spread, err)
		}
		if r.Threshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("bad threshold value %q: %w", threshold, err)
		}
		if r.RealizedPnl, err = decimal.NewFromString(realizedPnl); err != nil {
			return nil, fmt.Errorf("bad realized_pnl value %q: %w", realizedPnl, err)
		}
		r.FiredAt = firedAt

		records = append(records, r)
	}

	return records, rows.Err()
}
