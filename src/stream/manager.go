package stream

import (
	"context"
	"fmt"
	"sync"

	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/periodstore"
)

// MultiStreamManager owns every stream connection and their shared lifecycle.
type MultiStreamManager struct {
	Config  *models.MConfig
	Store   *periodstore.Store
	Logger  *logger.Logger
	mu      sync.RWMutex
	streams map[string]*Connection
	ctx     context.Context
	cancel  context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewMultiStreamManager(cfg *models.MConfig, store *periodstore.Store, log *logger.Logger) *MultiStreamManager {
	m := &MultiStreamManager{
		Config:  cfg,
		Store:   store,
		Logger:  log,
		streams: make(map[string]*Connection),
	}

	for _, sc := range cfg.Feed.Streams {
		conn := NewConnection(cfg, sc, store)
		m.streams[conn.StreamID()] = conn
	}

	return m
}

// -----------------------------------------------------------------------------

// AddStream registers a new stream and starts it if the manager is running.
func (m *MultiStreamManager) AddStream(streamCfg models.MStreamConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn := NewConnection(m.Config, streamCfg, m.Store)
	id := conn.StreamID()
	if _, exists := m.streams[id]; exists {
		return fmt.Errorf("stream %s already exists", id)
	}

	m.streams[id] = conn
	m.Logger.Info("Added stream: %s", id)

	if m.ctx != nil {
		if err := conn.Start(m.ctx); err != nil {
			return fmt.Errorf("failed to start stream %s: %v", id, err)
		}
		m.Logger.Info("Started stream: %s", id)
	}

	return nil
}

// -----------------------------------------------------------------------------

// RemoveStream stops and removes a stream.
func (m *MultiStreamManager) RemoveStream(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, exists := m.streams[id]
	if !exists {
		return fmt.Errorf("stream %s not found", id)
	}

	conn.Stop()
	delete(m.streams, id)
	m.Logger.Info("Removed stream: %s", id)
	return nil
}

// -----------------------------------------------------------------------------

// GetStream retrieves a stream by id.
func (m *MultiStreamManager) GetStream(id string) (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, exists := m.streams[id]
	if !exists {
		return nil, fmt.Errorf("stream %s not found", id)
	}
	return conn, nil
}

// -----------------------------------------------------------------------------

// GetAllStreams returns a snapshot of all connections.
func (m *MultiStreamManager) GetAllStreams() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Connection, 0, len(m.streams))
	for _, c := range m.streams {
		list = append(list, c)
	}
	return list
}

// -----------------------------------------------------------------------------

// Start starts all registered streams.
func (m *MultiStreamManager) Start(parentCtx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiStreamManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancel = cancel

	for id, conn := range m.streams {
		if err := conn.Start(m.ctx); err != nil {
			m.Logger.Error("Failed to start stream %s: %v", id, err)
			cancel()
			m.ctx = nil
			m.cancel = nil
			return err
		}
	}

	m.Logger.Info("MultiStreamManager started (%d streams)", len(m.streams))
	return nil
}

// Stop stops all streams gracefully.
func (m *MultiStreamManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil // Already stopped
	}

	m.Logger.Info("Stopping MultiStreamManager...")
	m.cancel()

	for _, conn := range m.streams {
		conn.Stop()
	}

	m.cancel = nil
	m.ctx = nil

	m.Logger.Info("MultiStreamManager stopped")
	return nil
}

// -----------------------------------------------------------------------------

// StartStream starts one stream by id (admin API).
func (m *MultiStreamManager) StartStream(id string) error {
	m.mu.RLock()
	conn, exists := m.streams[id]
	ctx := m.ctx
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("stream %s not found", id)
	}
	if ctx == nil {
		return fmt.Errorf("MultiStreamManager is not running")
	}

	return conn.Start(ctx)
}

// StopStream stops one stream by id (admin API).
func (m *MultiStreamManager) StopStream(id string) error {
	m.mu.RLock()
	conn, exists := m.streams[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("stream %s not found", id)
	}

	conn.Stop()
	return nil
}

// -----------------------------------------------------------------------------

// Health summarises every stream for the health endpoint.
func (m *MultiStreamManager) Health() []map[string]interface{} {
	streams := m.GetAllStreams()

	out := make([]map[string]interface{}, 0, len(streams))
	for _, c := range streams {
		out = append(out, map[string]interface{}{
			"id":           c.StreamID(),
			"connected":    c.IsConnected(),
			"ticks_seen":   c.TicksSeen(),
			"last_tick_at": c.LastTickUnix(),
		})
	}
	return out
}
