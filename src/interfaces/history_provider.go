package interfaces

import (
	"context"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// IHistoryProvider is the historical-data collaborator consumed by the
// baseline calculator. Any error or timeout yields an absent baseline,
// never a crash.
// -----------------------------------------------------------------------------

type IHistoryProvider interface {

	// FetchBars returns up to limit fully-closed bars for the symbol at the
	// given resolution, ending at endTime (exclusive), ordered by start time.
	FetchBars(ctx context.Context, symbol string, resolutionSeconds int, limit int, endTime int64) ([]models.MBar, error)
}
