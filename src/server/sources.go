package server

import (
	"context"
	"strconv"
	"time"

	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/periodstore"
)

// -----------------------------------------------------------------------------
// Channel sources
//
// Each pushable channel pairs a snapshot source (FULL state for new
// subscribers) with a publisher that emits INCREMENTAL diffs. Replaying the
// FULL snapshot plus every later INCREMENTAL converges to the live state.
// -----------------------------------------------------------------------------

const (
	ChannelPeriods  = "periods"
	ChannelTriggers = "triggers"
)

// -----------------------------------------------------------------------------
// Periods channel
// -----------------------------------------------------------------------------

type PeriodsSource struct {
	Store       *periodstore.Store
	Resolutions []int
}

// Snapshot covers every configured resolution unless the subscriber narrowed
// it with a resolution param. Row keys carry the resolution, so mixed
// snapshots stay separable client-side.
func (p *PeriodsSource) Snapshot(params map[string]interface{}) models.MPushMessage {
	resolutions := p.Resolutions
	if r := int(safeInt64(params, "resolution")); r > 0 {
		resolutions = []int{r}
	}

	current := make(map[string]interface{})
	for _, resolution := range resolutions {
		for key, state := range p.Store.Snapshot(resolution) {
			current[periodRowKey(key)] = periodRow(key, state)
		}
	}

	return models.MPushMessage{
		Kind:      models.PushFull,
		Current:   current,
		Timestamp: time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

// PeriodsPublisher diffs the period store on a fixed cadence and publishes the
// delta across every configured resolution. Rows that changed or appeared go
// in Current, rows that were evicted go in Removed.
type PeriodsPublisher struct {
	Hub         *Hub
	Store       *periodstore.Store
	Resolutions []int
	Interval    time.Duration
	Logger      *logger.Logger

	last map[models.MPeriodKey]models.MPeriodState
}

func NewPeriodsPublisher(hub *Hub, store *periodstore.Store, resolutions []int, interval time.Duration, log *logger.Logger) *PeriodsPublisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &PeriodsPublisher{
		Hub:         hub,
		Store:       store,
		Resolutions: resolutions,
		Interval:    interval,
		Logger:      log,
		last:        make(map[models.MPeriodKey]models.MPeriodState),
	}
}

// Run blocks until the context is done.
func (p *PeriodsPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishDelta()
		}
	}
}

func (p *PeriodsPublisher) publishDelta() {
	now := make(map[models.MPeriodKey]models.MPeriodState)
	for _, resolution := range p.Resolutions {
		for k, v := range p.Store.Snapshot(resolution) {
			now[k] = v
		}
	}

	current := make(map[string]interface{})
	var removed []string

	for key, state := range now {
		prev, seen := p.last[key]
		if !seen || !prev.Open.Equal(state.Open) || !prev.Close.Equal(state.Close) {
			current[periodRowKey(key)] = periodRow(key, state)
		}
	}
	for key := range p.last {
		if _, still := now[key]; !still {
			removed = append(removed, periodRowKey(key))
		}
	}

	p.last = now

	if len(current) == 0 && len(removed) == 0 {
		return
	}

	p.Hub.Publish(ChannelPeriods, models.MPushMessage{
		Kind:      models.PushIncremental,
		Current:   current,
		Removed:   removed,
		Timestamp: time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

func periodRowKey(key models.MPeriodKey) string {
	return strconv.Itoa(key.ResolutionSeconds) + ":" + strconv.FormatInt(key.PeriodStartUnix, 10)
}

func periodRow(key models.MPeriodKey, state models.MPeriodState) map[string]interface{} {
	return map[string]interface{}{
		"resolution":   key.ResolutionSeconds,
		"period_start": key.PeriodStartUnix,
		"open":         state.Open.String(),
		"close":        state.Close.String(),
	}
}

// -----------------------------------------------------------------------------
// Triggers channel
// -----------------------------------------------------------------------------

type TriggersSource struct {
	Store  interfaces.ITriggerStore
	Logger *logger.Logger
}

func (t *TriggersSource) Snapshot(params map[string]interface{}) models.MPushMessage {
	period := safeInt64(params, "period")
	if period == 0 {
		// Default to the current minute's period boundary.
		now := time.Now().Unix()
		period = now - (now % 60)
	}

	current := make(map[string]interface{})
	records, err := t.Store.ListByPeriod(period)
	if err != nil {
		t.Logger.Error("Trigger snapshot failed for period %d: %v", period, err)
	} else {
		for _, r := range records {
			current[r.StrategyID+":"+strconv.FormatInt(r.PeriodStartUnix, 10)] = r
		}
	}

	return models.MPushMessage{
		Kind:      models.PushFull,
		Current:   current,
		Timestamp: time.Now().UnixMilli(),
	}
}

// PublishTriggerUpdate pushes one trigger record change to subscribers.
func PublishTriggerUpdate(hub *Hub, record models.MTriggerRecord) {
	hub.Publish(ChannelTriggers, models.MPushMessage{
		Kind: models.PushIncremental,
		Current: map[string]interface{}{
			record.StrategyID + ":" + strconv.FormatInt(record.PeriodStartUnix, 10): record,
		},
		Timestamp: time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------
// Param helpers
// -----------------------------------------------------------------------------

func safeInt64(data map[string]interface{}, key string) int64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}
