package server

import (
	"sync"
	"time"

	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Push Hub
//
// Keeps the subscription registry: which session listens to which channel.
// Channels are registered with a snapshot source; a new subscriber gets an ack
// and the channel's FULL snapshot, then receives INCREMENTAL updates via
// Publish. A slow or broken session is removed on its own; other subscribers
// never notice.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger

	// Mutex-driven rather than loop-driven so subscribe acks can be answered
	// inline on the caller's goroutine.
	mu       sync.RWMutex
	sessions map[string]*Session
	channels map[string]map[string]*Session
	sources  map[string]interfaces.IChannelSource
}

// -----------------------------------------------------------------------------

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Logger:   log,
		sessions: make(map[string]*Session),
		channels: make(map[string]map[string]*Session),
		sources:  make(map[string]interfaces.IChannelSource),
	}
}

// -----------------------------------------------------------------------------

// RegisterChannel wires a channel name to its snapshot source. Publishing to
// an unregistered channel is a no-op.
func (h *Hub) RegisterChannel(name string, source interfaces.IChannelSource) {
	h.mu.Lock()
	h.sources[name] = source
	if _, ok := h.channels[name]; !ok {
		h.channels[name] = make(map[string]*Session)
	}
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------

// RegisterSession adds a session to the registry. Re-registering the same id
// is idempotent.
func (h *Hub) RegisterSession(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.sessions[s.ID] = s
	}
	h.mu.Unlock()
	h.Logger.Debug("Session %s registered", s.ID)
}

// -----------------------------------------------------------------------------

// UnregisterSession removes the session from the registry and from every
// channel it subscribed to, and closes its send queue. Safe to call twice.
func (h *Hub) UnregisterSession(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
		for _, subs := range h.channels {
			delete(subs, id)
		}
	}
	h.mu.Unlock()

	if ok {
		s.closeSend()
		h.Logger.Debug("Session %s unregistered", id)
	}
}

// -----------------------------------------------------------------------------

// Subscribe adds the session to a channel and answers with an ack followed by
// the channel's FULL snapshot. Only the subscribing session receives either.
func (h *Hub) Subscribe(s *Session, channel string, params map[string]interface{}) {
	h.mu.Lock()
	source, known := h.sources[channel]
	if known {
		h.channels[channel][s.ID] = s
	}
	h.mu.Unlock()

	if !known {
		s.enqueue(models.MClientEnvelope{
			Type:      models.MsgTypeSubAck,
			Channel:   channel,
			Status:    "error",
			Message:   "unknown channel",
			Timestamp: time.Now().UnixMilli(),
		})
		return
	}

	s.enqueue(models.MClientEnvelope{
		Type:      models.MsgTypeSubAck,
		Channel:   channel,
		Status:    "ok",
		Timestamp: time.Now().UnixMilli(),
	})

	snapshot := source.Snapshot(params)
	snapshot.Kind = models.PushFull
	snapshot.Channel = channel
	s.enqueue(models.MClientEnvelope{
		Type:      models.MsgTypeData,
		Channel:   channel,
		Payload:   snapshot,
		Timestamp: time.Now().UnixMilli(),
	})

	h.Logger.Debug("Session %s subscribed to %s", s.ID, channel)
}

// -----------------------------------------------------------------------------

// Unsubscribe removes the session from one channel. Unknown channel or absent
// subscription is a no-op.
func (h *Hub) Unsubscribe(s *Session, channel string) {
	h.mu.Lock()
	if subs, ok := h.channels[channel]; ok {
		delete(subs, s.ID)
	}
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Publish fans one message out to every subscriber of the channel. Sessions
// whose send queue is full are unregistered; delivery to the rest continues.
// Zero subscribers is a no-op.
func (h *Hub) Publish(channel string, msg models.MPushMessage) {
	msg.Channel = channel
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	subs := make([]*Session, 0, len(h.channels[channel]))
	for _, s := range h.channels[channel] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	env := models.MClientEnvelope{
		Type:      models.MsgTypeData,
		Channel:   channel,
		Payload:   msg,
		Timestamp: msg.Timestamp,
	}

	for _, s := range subs {
		if !s.enqueue(env) {
			// Slow consumer; prune it so the hub never blocks.
			h.Logger.Warning("Session %s send queue full, dropping session", s.ID)
			h.UnregisterSession(s.ID)
		}
	}
}

// -----------------------------------------------------------------------------

// ConnectionCount returns the number of registered sessions.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SubscriberCount returns the number of subscribers on one channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Sessions returns a snapshot of all registered sessions.
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}
