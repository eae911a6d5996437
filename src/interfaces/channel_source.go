package interfaces

import "trade-automator/src/models"

// -----------------------------------------------------------------------------
// IChannelSource produces the initial FULL snapshot for one pushable channel.
// The core imposes only the FULL/INCREMENTAL contract, not the data's shape;
// params are the subscriber's channel-specific filter arguments, passed
// through opaquely.
// -----------------------------------------------------------------------------

type IChannelSource interface {

	// Snapshot returns a FULL message representing the channel's current state.
	Snapshot(params map[string]interface{}) models.MPushMessage
}
