package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Sweep Runner
//
// Periodically walks every enabled strategy through the evaluator, and
// settles fired records once their period has fully closed. Both sweeps are
// cron-driven; evaluation only runs while the instrument's market is open.
// -----------------------------------------------------------------------------

// IMarketGate reports whether trading is currently possible for a symbol.
type IMarketGate interface {
	IsMarketOpen(symbol string) bool
}

type SweepRunner struct {
	Config    *models.MConfig
	Evaluator *Evaluator
	History   interfaces.IHistoryProvider
	Gate      IMarketGate
	Logger    *logger.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	strategies []models.MStrategyConfig
}

// -----------------------------------------------------------------------------

func NewSweepRunner(cfg *models.MConfig, ev *Evaluator, history interfaces.IHistoryProvider,
	gate IMarketGate, log *logger.Logger) *SweepRunner {
	return &SweepRunner{
		Config:     cfg,
		Evaluator:  ev,
		History:    history,
		Gate:       gate,
		Logger:     log,
		cron:       cron.New(cron.WithSeconds()),
		strategies: cfg.Strategies,
	}
}

// -----------------------------------------------------------------------------

func (r *SweepRunner) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	interval := r.Config.Trigger.SweepIntervalSeconds
	if interval <= 0 {
		interval = 1
	}

	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %ds", interval), r.evaluationSweep); err != nil {
		return fmt.Errorf("failed to schedule evaluation sweep: %w", err)
	}

	// Settlement lags evaluation; once a minute is plenty.
	if _, err := r.cron.AddFunc("@every 1m", r.settlementSweep); err != nil {
		return fmt.Errorf("failed to schedule settlement sweep: %w", err)
	}

	r.cron.Start()
	r.Logger.Info("SweepRunner started (evaluation every %ds)", interval)
	return nil
}

// -----------------------------------------------------------------------------

func (r *SweepRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.Logger.Info("SweepRunner stopped")
}

// -----------------------------------------------------------------------------

// UpdateStrategies swaps the strategy set at runtime (admin API).
func (r *SweepRunner) UpdateStrategies(strategies []models.MStrategyConfig) {
	r.mu.Lock()
	r.strategies = strategies
	r.mu.Unlock()
}

func (r *SweepRunner) Strategies() []models.MStrategyConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.MStrategyConfig, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// -----------------------------------------------------------------------------

func (r *SweepRunner) evaluationSweep() {
	if r.ctx.Err() != nil {
		return
	}
	now := time.Now().Unix()

	for _, strategy := range r.Strategies() {
		if !strategy.Enabled {
			continue
		}
		if r.Gate != nil && !r.Gate.IsMarketOpen(strategy.Symbol) {
			continue
		}
		r.Evaluator.Evaluate(r.ctx, strategy, now)
	}
}

// -----------------------------------------------------------------------------

// settlementSweep resolves fired records whose period has closed: the final
// bar decides the outcome, and the record moves to its settled state.
func (r *SweepRunner) settlementSweep() {
	if r.ctx.Err() != nil {
		return
	}
	now := time.Now().Unix()

	records, err := r.Evaluator.Store.ListUnsettled(now)
	if err != nil {
		r.Logger.Error("Settlement listing failed: %v", err)
		return
	}

	for _, record := range records {
		strategy, ok := r.strategyByID(record.StrategyID)
		if !ok {
			// Strategy removed from config; leave the record for manual review.
			continue
		}

		periodEnd := record.PeriodStartUnix + int64(strategy.IntervalSeconds)
		if now < periodEnd {
			continue
		}

		if err := r.settleOne(record, strategy, periodEnd); err != nil {
			r.Logger.Warning("Settlement deferred for %s@%d: %v", record.StrategyID, record.PeriodStartUnix, err)
		}
	}
}

// -----------------------------------------------------------------------------

func (r *SweepRunner) settleOne(record models.MTriggerRecord, strategy models.MStrategyConfig, periodEnd int64) error {
	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()

	bars, err := r.History.FetchBars(ctx, record.Symbol, strategy.IntervalSeconds, 2, periodEnd+1)
	if err != nil {
		return err
	}

	var final *models.MBar
	for i := range bars {
		if bars[i].StartTime == record.PeriodStartUnix {
			final = &bars[i]
			break
		}
	}
	if final == nil {
		return fmt.Errorf("closed bar for period %d not available yet", record.PeriodStartUnix)
	}

	move := final.Close.Sub(final.Open)
	won := (record.Direction == models.DirectionUp && move.Sign() > 0) ||
		(record.Direction == models.DirectionDown && move.Sign() < 0)

	amount := decimal.NewFromFloat(strategy.Amount)
	record.Status = models.TriggerStatusSettled
	if move.Sign() == 0 {
		record.WinnerOutcome = "draw"
		record.RealizedPnl = decimal.Zero
	} else if won {
		record.WinnerOutcome = "win"
		record.RealizedPnl = amount
	} else {
		record.WinnerOutcome = "loss"
		record.RealizedPnl = amount.Neg()
	}

	if err := r.Evaluator.Store.Update(record); err != nil {
		return err
	}
	r.Evaluator.notify(record)

	r.Logger.Info("Settled %s@%d: %s (pnl %s)",
		record.StrategyID, record.PeriodStartUnix, record.WinnerOutcome, record.RealizedPnl.String())
	return nil
}

// -----------------------------------------------------------------------------

func (r *SweepRunner) strategyByID(id string) (models.MStrategyConfig, bool) {
	for _, s := range r.Strategies() {
		if s.ID == id {
			return s, true
		}
	}
	return models.MStrategyConfig{}, false
}
