package server

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// -----------------------------------------------------------------------------
// Session Structure
// -----------------------------------------------------------------------------

type Session struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan models.MClientEnvelope

	lastActivity atomic.Int64
	closeOnce    sync.Once
}

// -----------------------------------------------------------------------------

func NewSession(id string, hub *Hub, conn *websocket.Conn) *Session {
	s := &Session{
		ID:   id,
		hub:  hub,
		conn: conn,
		// Buffered so the hub's Publish never blocks on one consumer
		send: make(chan models.MClientEnvelope, sendQueueSize),
	}
	s.touch()
	return s
}

// -----------------------------------------------------------------------------

// touch resets the liveness clock; any inbound frame counts as activity.
func (s *Session) touch() {
	s.lastActivity.Store(time.Now().Unix())
}

// LastActivityUnix is read by the liveness monitor.
func (s *Session) LastActivityUnix() int64 {
	return s.lastActivity.Load()
}

// -----------------------------------------------------------------------------

// enqueue offers a message to the session's send queue without blocking.
// Returns false when the queue is full or already closed.
func (s *Session) enqueue(env models.MClientEnvelope) bool {
	defer func() {
		// A concurrent closeSend can race the send; treat it as a miss.
		recover()
	}()

	select {
	case s.send <- env:
		return true
	default:
		return false
	}
}

func (s *Session) closeSend() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// CloseNormal sends a normal-closure frame, best effort (liveness eviction).
func (s *Session) CloseNormal(reason string) {
	if s.conn == nil {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	s.conn.Close()
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from the client
// Acts as the watchdog for the connection
// -----------------------------------------------------------------------------

func (s *Session) readPump() {
	defer func() {
		s.hub.UnregisterSession(s.ID)
		s.conn.Close()
		s.hub.Logger.Info("Session %s disconnected", s.ID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.touch()
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.Logger.Info("WebSocket error on %s: %v", s.ID, err)
			}
			break
		}
		s.touch()
		s.handleMessage(message)
	}
}

// -----------------------------------------------------------------------------

// handleMessage dispatches one inbound frame. Malformed frames are logged and
// dropped; the session stays alive.
func (s *Session) handleMessage(message []byte) {
	// Legacy keepalive: a bare PING text frame gets a bare PONG back.
	if string(message) == models.MsgTypePing {
		s.enqueue(models.MClientEnvelope{Type: models.MsgTypePong, Timestamp: time.Now().UnixMilli()})
		return
	}

	var env models.MClientEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		s.hub.Logger.Warning("Session %s sent malformed frame: %v", s.ID, err)
		return
	}

	switch env.Type {
	case models.MsgTypeSub:
		if env.Channel == "" {
			s.hub.Logger.Warning("Session %s SUB without channel", s.ID)
			return
		}
		s.hub.Subscribe(s, env.Channel, env.Params)
	case models.MsgTypeUnsub:
		s.hub.Unsubscribe(s, env.Channel)
	case models.MsgTypePing:
		s.enqueue(models.MClientEnvelope{Type: models.MsgTypePong, Status: "ok", Timestamp: time.Now().UnixMilli()})
	default:
		s.hub.Logger.Debug("Session %s sent unknown type %q", s.ID, env.Type)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to the client
// -----------------------------------------------------------------------------

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Bare PONG stays a text frame for legacy clients.
			if env.Type == models.MsgTypePong && env.Status == "" {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(models.MsgTypePong)); err != nil {
					return
				}
				continue
			}

			if err := s.conn.WriteJSON(env); err != nil {
				s.hub.Logger.Info("Write error on %s: %v", s.ID, err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
