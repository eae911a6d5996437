package interfaces

import (
	"context"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// IOrderSubmitter is the opaque order-submission collaborator. Failures are
// recorded on the trigger record and never retried within the same period.
// -----------------------------------------------------------------------------

type IOrderSubmitter interface {

	// SubmitOrder places the order described by the strategy for the given
	// period and returns the collaborator's order identifier.
	SubmitOrder(ctx context.Context, strategy models.MStrategyConfig, periodStartUnix int64) (string, error)
}
