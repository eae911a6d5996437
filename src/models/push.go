package models

// -----------------------------------------------------------------------------
// Push Hub wire structures
// -----------------------------------------------------------------------------

// Push message kinds
const (
	PushFull        = "FULL"
	PushIncremental = "INCREMENTAL"
)

// Client envelope types
const (
	MsgTypeSub    = "SUB"
	MsgTypeUnsub  = "UNSUB"
	MsgTypeData   = "DATA"
	MsgTypeSubAck = "SUB_ACK"
	MsgTypePing   = "PING"
	MsgTypePong   = "PONG"
)

// MPushMessage carries one channel update. FULL messages are a complete
// snapshot; INCREMENTAL messages carry only changed/added rows plus the keys
// of removed rows, so replaying FULL + INCREMENTALs in order converges to the
// same state as the final FULL snapshot.
type MPushMessage struct {
	Kind      string                 `json:"kind"`
	Channel   string                 `json:"channel"`
	Current   map[string]interface{} `json:"current,omitempty"`
	Removed   []string               `json:"removed,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MClientEnvelope is the conceptual envelope for client wire messages.
// A bare "PING" text frame is answered with a bare "PONG" outside of it.
type MClientEnvelope struct {
	Type      string                 `json:"type"`
	Channel   string                 `json:"channel,omitempty"`
	Payload   interface{}            `json:"payload,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Timestamp int64                  `json:"timestamp,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Message   string                 `json:"message,omitempty"`
}
