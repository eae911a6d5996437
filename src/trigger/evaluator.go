package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trade-automator/src/analysis/core"
	"trade-automator/src/baseline"
	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/periodstore"
)

// -----------------------------------------------------------------------------
// Trigger Evaluator
//
// Evaluates every enabled strategy against the live period state. A strategy
// fires at most once per period: the durable claim in the trigger store is
// taken BEFORE the order goes out, so a crash after the claim loses the order
// but never duplicates it. Within the process an in-memory terminal map
// short-circuits already-consumed periods without touching the store.
// -----------------------------------------------------------------------------

type claimKey struct {
	StrategyID      string
	PeriodStartUnix int64
}

type Evaluator struct {
	Store     interfaces.ITriggerStore
	Submitter interfaces.IOrderSubmitter
	Periods   *periodstore.Store
	Baselines *baseline.Calculator
	Logger    *logger.Logger

	// Publish, when set, receives every trigger record change (claim, order
	// result, settlement) for push distribution.
	Publish func(models.MTriggerRecord)

	mu       sync.Mutex
	terminal map[claimKey]struct{}
}

// -----------------------------------------------------------------------------

func NewEvaluator(store interfaces.ITriggerStore, submitter interfaces.IOrderSubmitter,
	periods *periodstore.Store, baselines *baseline.Calculator, log *logger.Logger) *Evaluator {
	return &Evaluator{
		Store:     store,
		Submitter: submitter,
		Periods:   periods,
		Baselines: baselines,
		Logger:    log,
		terminal:  make(map[claimKey]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Evaluate runs one strategy against the current period at time now (unix
// seconds). Returns true when an order claim happened on this call, whether
// or not the order itself succeeded.
func (e *Evaluator) Evaluate(ctx context.Context, strategy models.MStrategyConfig, now int64) bool {
	if !strategy.Enabled || strategy.IntervalSeconds <= 0 {
		return false
	}

	periodStart := now - (now % int64(strategy.IntervalSeconds))
	offset := now - periodStart

	key := claimKey{StrategyID: strategy.ID, PeriodStartUnix: periodStart}
	if e.isTerminal(key) {
		return false
	}

	// Time gate: both window bounds are inclusive.
	if offset < strategy.WindowStartSeconds || offset > strategy.WindowEndSeconds {
		return false
	}

	state, ok := e.Periods.Get(strategy.IntervalSeconds, periodStart)
	if !ok {
		// No tick seen for this period yet; try again next sweep.
		return false
	}

	// Price gate on the live close. Zero bounds are open-ended.
	if strategy.MinPrice > 0 && state.Close.LessThan(decimal.NewFromFloat(strategy.MinPrice)) {
		return false
	}
	if strategy.MaxPrice > 0 && state.Close.GreaterThan(decimal.NewFromFloat(strategy.MaxPrice)) {
		return false
	}

	spread := state.Spread(strategy.Direction)
	if spread.Sign() <= 0 {
		// The period is moving against the strategy's direction.
		return false
	}

	threshold, ok := e.spreadThreshold(ctx, strategy, periodStart, offset)
	if !ok {
		// Baseline unavailable; not terminal, the next sweep retries.
		return false
	}
	if spread.LessThan(threshold) {
		return false
	}

	return e.fire(ctx, strategy, periodStart, state, spread, threshold)
}

// -----------------------------------------------------------------------------

// spreadThreshold resolves the minimum spread the strategy requires right now.
// The second return value is false only when a needed baseline is unavailable.
func (e *Evaluator) spreadThreshold(ctx context.Context, strategy models.MStrategyConfig, periodStart, offset int64) (decimal.Decimal, bool) {
	switch strategy.MinSpreadMode {
	case models.SpreadModeFixed:
		return decimal.NewFromFloat(strategy.MinSpreadValue), true
	case models.SpreadModeAuto:
		base, ok := e.Baselines.Baseline(ctx, strategy.Symbol, strategy.IntervalSeconds, periodStart, strategy.Direction)
		if !ok {
			return decimal.Zero, false
		}
		if base.Sign() <= 0 {
			// No historical swings in this direction; nothing to compare against.
			return decimal.Zero, false
		}
		return core.EffectiveThreshold(base, offset, strategy.WindowStartSeconds, strategy.WindowEndSeconds), true
	default:
		// SpreadModeNone
		return decimal.Zero, true
	}
}

// -----------------------------------------------------------------------------

// fire claims the period in the store and submits the order. The claim is
// durable before submission; a failed submission marks the record failed and
// the period stays consumed.
func (e *Evaluator) fire(ctx context.Context, strategy models.MStrategyConfig, periodStart int64,
	state models.MPeriodState, spread, threshold decimal.Decimal) bool {

	key := claimKey{StrategyID: strategy.ID, PeriodStartUnix: periodStart}

	record := models.MTriggerRecord{
		StrategyID:      strategy.ID,
		PeriodStartUnix: periodStart,
		Symbol:          strategy.Symbol,
		Direction:       strategy.Direction,
		Price:           state.Close,
		Spread:          spread,
		Threshold:       threshold,
		Status:          models.TriggerStatusFired,
		FiredAt:         time.Now().UTC(),
	}

	claimed, err := e.Store.InsertIfAbsent(record)
	if err != nil {
		e.Logger.Error("Trigger claim failed for %s@%d: %v", strategy.ID, periodStart, err)
		return false
	}
	if !claimed {
		// Another instance (or an earlier run) already consumed this period.
		e.markTerminal(key)
		return false
	}
	e.markTerminal(key)

	orderID, err := e.Submitter.SubmitOrder(ctx, strategy, periodStart)
	if err != nil {
		e.Logger.Error("Order submission failed for %s@%d: %v", strategy.ID, periodStart, err)
		record.Status = models.TriggerStatusFailed
		record.FailReason = err.Error()
		if updateErr := e.Store.Update(record); updateErr != nil {
			e.Logger.Error("Failed to record order failure for %s@%d: %v", strategy.ID, periodStart, updateErr)
		}
		e.notify(record)
		return true
	}

	record.OrderID = orderID
	if err := e.Store.Update(record); err != nil {
		e.Logger.Error("Failed to record order id for %s@%d: %v", strategy.ID, periodStart, err)
	}
	e.notify(record)

	e.Logger.Info("Strategy %s fired for period %d (spread %s >= %s, order %s)",
		strategy.ID, periodStart, spread.String(), threshold.String(), orderID)
	return true
}

// -----------------------------------------------------------------------------

func (e *Evaluator) notify(record models.MTriggerRecord) {
	if e.Publish != nil {
		e.Publish(record)
	}
}

// -----------------------------------------------------------------------------

func (e *Evaluator) isTerminal(key claimKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.terminal[key]
	return ok
}

func (e *Evaluator) markTerminal(key claimKey) {
	e.mu.Lock()
	e.terminal[key] = struct{}{}
	// Drop entries from long-gone periods to keep the map bounded.
	for k := range e.terminal {
		if k.PeriodStartUnix < key.PeriodStartUnix-86400 {
			delete(e.terminal, k)
		}
	}
	e.mu.Unlock()
}
