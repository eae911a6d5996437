package interfaces

import "trade-automator/src/models"

// -----------------------------------------------------------------------------
// ITriggerStore is the trigger-record store collaborator. InsertIfAbsent must
// be a single atomic operation against the unique (strategy_id, period_start)
// key: it is what upholds the at-most-one-trigger-per-period invariant.
// -----------------------------------------------------------------------------

type ITriggerStore interface {

	// Initialize sets up the backing tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// InsertIfAbsent atomically claims the (strategy, period) slot.
	// Returns created=false when a record already exists.
	InsertIfAbsent(record models.MTriggerRecord) (bool, error)

	// -----------------------------------------------------------------------------

	// Update rewrites the mutable fields (status, fail reason, order id,
	// settlement fields) of an existing record.
	Update(record models.MTriggerRecord) error

	// -----------------------------------------------------------------------------

	// ListByPeriod returns all records for one period start, ordered by
	// strategy id.
	ListByPeriod(periodStartUnix int64) ([]models.MTriggerRecord, error)

	// -----------------------------------------------------------------------------

	// ListUnsettled returns fired records whose period has closed but whose
	// settlement fields are still empty.
	ListUnsettled(before int64) ([]models.MTriggerRecord, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
