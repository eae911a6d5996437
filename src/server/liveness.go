package server

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Session Liveness Monitor
//
// Periodically evicts sessions that have shown no activity (no frame, no pong)
// within the timeout. Eviction is best effort: the close frame may never reach
// a dead peer, the registry cleanup always happens.
// -----------------------------------------------------------------------------

const (
	defaultSessionTimeout = 60 * time.Second
	defaultSweepInterval  = 30
)

type LivenessMonitor struct {
	Hub    *Hub
	Logger *logger.Logger

	timeout       time.Duration
	sweepInterval int
	cron          *cron.Cron
}

// -----------------------------------------------------------------------------

func NewLivenessMonitor(cfg *models.MConfig, hub *Hub, log *logger.Logger) *LivenessMonitor {
	timeout := time.Duration(cfg.Session.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	sweep := cfg.Session.SweepIntervalSeconds
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}

	return &LivenessMonitor{
		Hub:           hub,
		Logger:        log,
		timeout:       timeout,
		sweepInterval: sweep,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// -----------------------------------------------------------------------------

func (m *LivenessMonitor) Start() error {
	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %ds", m.sweepInterval), m.Sweep); err != nil {
		return fmt.Errorf("failed to schedule liveness sweep: %w", err)
	}
	m.cron.Start()
	m.Logger.Info("LivenessMonitor started (timeout %s, sweep every %ds)", m.timeout, m.sweepInterval)
	return nil
}

func (m *LivenessMonitor) Stop() {
	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
}

// -----------------------------------------------------------------------------

// Sweep evicts every session idle past the timeout.
func (m *LivenessMonitor) Sweep() {
	now := time.Now().Unix()
	cutoff := int64(m.timeout.Seconds())

	for _, s := range m.Hub.Sessions() {
		idle := now - s.LastActivityUnix()
		if idle <= cutoff {
			continue
		}

		m.Logger.Info("Evicting idle session %s (%ds without activity)", s.ID, idle)
		m.Hub.UnregisterSession(s.ID)
		s.CloseNormal("session timed out")
	}
}
