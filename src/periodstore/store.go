package periodstore

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Period State Store
//
// Process-wide concurrency-safe map from (resolution, period start) to the
// latest open/close observed for that period. Written by stream connections,
// read by the baseline calculator and the trigger evaluator. Entries
// accumulate per period; old ones are evicted lazily by age.
// -----------------------------------------------------------------------------

type Store struct {
	mu      sync.RWMutex
	periods map[models.MPeriodKey]models.MPeriodState
	Logger  *logger.Logger

	// Periods older than retention*resolution are dropped on Put.
	retentionPeriods int
}

// -----------------------------------------------------------------------------

func NewStore(retentionPeriods int, log *logger.Logger) *Store {
	if retentionPeriods <= 0 {
		retentionPeriods = 100
	}
	return &Store{
		periods:          make(map[models.MPeriodKey]models.MPeriodState),
		Logger:           log,
		retentionPeriods: retentionPeriods,
	}
}

// -----------------------------------------------------------------------------

// Put stores the latest open/close for a period. Last-write-wins: ticks for
// the same period overwrite each other regardless of delivery interleaving.
// Writes for already-rolled-over periods are accepted but logged.
func (s *Store) Put(resolutionSeconds int, periodStartUnix int64, openPx, closePx decimal.Decimal) {
	key := models.MPeriodKey{
		ResolutionSeconds: resolutionSeconds,
		PeriodStartUnix:   periodStartUnix,
	}

	periodEnd := periodStartUnix + int64(resolutionSeconds)
	if now := time.Now().Unix(); now >= periodEnd {
		s.Logger.Warning("Late write for closed period %d/%d (%.0fs after rollover)",
			resolutionSeconds, periodStartUnix, float64(now-periodEnd))
	}

	s.mu.Lock()
	s.periods[key] = models.MPeriodState{Open: openPx, Close: closePx}
	s.evictLocked(resolutionSeconds, periodStartUnix)
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Get returns the stored state for a period, if any.
func (s *Store) Get(resolutionSeconds int, periodStartUnix int64) (models.MPeriodState, bool) {
	key := models.MPeriodKey{
		ResolutionSeconds: resolutionSeconds,
		PeriodStartUnix:   periodStartUnix,
	}

	s.mu.RLock()
	state, ok := s.periods[key]
	s.mu.RUnlock()
	return state, ok
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of all stored periods for one resolution.
func (s *Store) Snapshot(resolutionSeconds int) map[models.MPeriodKey]models.MPeriodState {
	out := make(map[models.MPeriodKey]models.MPeriodState)

	s.mu.RLock()
	for k, v := range s.periods {
		if k.ResolutionSeconds == resolutionSeconds {
			out[k] = v
		}
	}
	s.mu.RUnlock()
	return out
}

// -----------------------------------------------------------------------------

// Len returns the number of stored periods.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.periods)
}

// -----------------------------------------------------------------------------

// evictLocked drops periods of the same resolution that have aged out of the
// retention horizon. Caller holds the write lock.
func (s *Store) evictLocked(resolutionSeconds int, latestStartUnix int64) {
	horizon := latestStartUnix - int64(s.retentionPeriods*resolutionSeconds)
	for k := range s.periods {
		if k.ResolutionSeconds == resolutionSeconds && k.PeriodStartUnix < horizon {
			delete(s.periods, k)
		}
	}
}
