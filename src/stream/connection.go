package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trade-automator/src/helpers"
	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/periodstore"
)

// -----------------------------------------------------------------------------
// Stream Connection
//
// One websocket subscription per (symbol, resolution). The connection owns its
// lifecycle: dial, read loop, keepalive, and reconnection. Reconnects are
// single-flight: whatever error surfaces first (read failure, ping failure,
// server close) schedules exactly one reconnect attempt after a fixed delay;
// every other failure path observes the state and stands down.
// -----------------------------------------------------------------------------

// Connection states (atomic).
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
	stateReconnectScheduled
)

const (
	handshakeTimeout      = 10 * time.Second
	readDeadline          = 30 * time.Second
	keepaliveInterval     = 15 * time.Second
	writeDeadline         = 5 * time.Second
	defaultReconnectDelay = 3 * time.Second
)

type Connection struct {
	Symbol            string
	ResolutionSeconds int
	WsURL             string
	Store             *periodstore.Store
	Logger            *logger.Logger

	reconnectDelay time.Duration

	state atomic.Int32
	gen   atomic.Int64 // bumped per successful dial; stale loops stand down
	conn  *websocket.Conn
	muW   sync.Mutex // guards writes to conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ticksSeen   atomic.Int64
	lastTickAt  atomic.Int64
	connectedAt atomic.Int64
}

// -----------------------------------------------------------------------------

func NewConnection(cfg *models.MConfig, streamCfg models.MStreamConfig, store *periodstore.Store) *Connection {
	delay := time.Duration(cfg.Feed.ReconnectDelaySeconds) * time.Second
	if delay <= 0 {
		delay = defaultReconnectDelay
	}

	return &Connection{
		Symbol:            streamCfg.Symbol,
		ResolutionSeconds: streamCfg.ResolutionSeconds,
		WsURL:             cfg.Feed.WsURL,
		Store:             store,
		Logger:            logger.NewLogger(cfg.LogLevel, fmt.Sprintf("Stream[%s/%d]", streamCfg.Symbol, streamCfg.ResolutionSeconds)),
		reconnectDelay:    delay,
	}
}

// -----------------------------------------------------------------------------

// Start dials the stream and begins consuming ticks. Non-blocking; the read
// loop runs until Stop or context cancellation.
func (c *Connection) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if !c.state.CompareAndSwap(stateDisconnected, stateConnecting) {
		return fmt.Errorf("stream %s/%d already started", c.Symbol, c.ResolutionSeconds)
	}

	if err := c.dial(); err != nil {
		// Initial dial failures also go through the reconnect path so a
		// briefly-unavailable upstream does not kill the stream forever.
		c.state.Store(stateConnected) // scheduleReconnect expects a live-ish state
		c.scheduleReconnect(c.gen.Load(), err)
		return nil
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Connection) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()
	c.wg.Wait()
	c.state.Store(stateDisconnected)
	c.Logger.Info("Stream stopped")
}

// -----------------------------------------------------------------------------

func (c *Connection) IsConnected() bool {
	return c.state.Load() == stateConnected
}

// StreamID identifies the connection in admin listings.
func (c *Connection) StreamID() string {
	return fmt.Sprintf("%s/%d", c.Symbol, c.ResolutionSeconds)
}

// TicksSeen returns the lifetime tick count (health reporting).
func (c *Connection) TicksSeen() int64 {
	return c.ticksSeen.Load()
}

// LastTickUnix returns when the last valid tick arrived, 0 if never.
func (c *Connection) LastTickUnix() int64 {
	return c.lastTickAt.Load()
}

// -----------------------------------------------------------------------------

// dial opens the websocket, sends the subscription request and launches the
// read and keepalive loops. Caller must hold the connecting state.
func (c *Connection) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, c.WsURL, nil)
	if err != nil {
		return &helpers.FeedError{AutomatorError: helpers.AutomatorError{
			Message: fmt.Sprintf("dial %s", c.WsURL), Cause: err}}
	}

	sub := map[string]interface{}{
		"op":         "subscribe",
		"symbol":     c.Symbol,
		"resolution": c.ResolutionSeconds,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", c.Symbol, err)
	}

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	c.muW.Lock()
	c.conn = conn
	c.muW.Unlock()

	gen := c.gen.Add(1)
	c.state.Store(stateConnected)
	c.connectedAt.Store(time.Now().Unix())
	c.Logger.Info("Stream connected (%s)", c.WsURL)

	c.wg.Add(2)
	go c.readLoop(conn, gen)
	go c.keepalive(conn, gen)
	return nil
}

// -----------------------------------------------------------------------------

func (c *Connection) readLoop(conn *websocket.Conn, gen int64) {
	defer c.wg.Done()

	for {
		if c.ctx.Err() != nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.scheduleReconnect(gen, err)
			}
			return
		}

		var tick models.MTick
		if err := json.Unmarshal(message, &tick); err != nil {
			c.Logger.Warning("Malformed tick dropped: %v", err)
			continue
		}
		if tick.ResolutionSeconds != c.ResolutionSeconds || tick.PeriodStartMs <= 0 {
			c.Logger.Warning("Tick with unexpected resolution/ts dropped (%d/%d)", tick.ResolutionSeconds, tick.PeriodStartMs)
			continue
		}

		c.Store.Put(c.ResolutionSeconds, tick.PeriodStartMs/1000, tick.Open, tick.Close)
		c.ticksSeen.Add(1)
		c.lastTickAt.Store(time.Now().Unix())
	}
}

// -----------------------------------------------------------------------------

func (c *Connection) keepalive(conn *websocket.Conn, gen int64) {
	defer c.wg.Done()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.muW.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.muW.Unlock()
			if err != nil {
				if c.ctx.Err() == nil {
					c.scheduleReconnect(gen, err)
				}
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// scheduleReconnect moves the connection into the reconnect-scheduled state.
// The generation check rejects reports from loops of an earlier connection (a
// descheduled read-loop goroutine must not close a fresh dial); the CAS then
// guarantees only the first failure on the current connection wins, so the
// read loop and the keepalive loop can both report the same break without
// spawning two reconnect timers.
func (c *Connection) scheduleReconnect(gen int64, cause error) {
	if gen != c.gen.Load() {
		return
	}
	if !c.state.CompareAndSwap(stateConnected, stateReconnectScheduled) {
		return
	}

	c.closeConn()
	c.Logger.Warning("Stream lost (%v), reconnecting in %s", cause, c.reconnectDelay)

	time.AfterFunc(c.reconnectDelay, func() {
		if c.ctx.Err() != nil {
			c.state.Store(stateDisconnected)
			return
		}
		if !c.state.CompareAndSwap(stateReconnectScheduled, stateConnecting) {
			return
		}
		if err := c.dial(); err != nil {
			c.state.Store(stateConnected)
			c.scheduleReconnect(c.gen.Load(), err)
		}
	})
}

// -----------------------------------------------------------------------------

func (c *Connection) closeConn() {
	c.muW.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.muW.Unlock()
}
