package baseline

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trade-automator/src/analysis/core"
	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// Baseline Calculator
//
// Computes the outlier-filtered average swing per direction for a period and
// caches it. The cached value is the 100%-of-window base; callers apply the
// window-decay coefficient themselves (see analysis/core.DecayCoefficient).
// -----------------------------------------------------------------------------

const defaultBarsLimit = 20

type Calculator struct {
	History      interfaces.IHistoryProvider
	Logger       *logger.Logger
	BarsLimit    int
	FetchTimeout time.Duration

	mu    sync.RWMutex
	cache map[models.MBaselineKey]models.MBaseline
}

// -----------------------------------------------------------------------------

func NewCalculator(history interfaces.IHistoryProvider, barsLimit int, fetchTimeout time.Duration, log *logger.Logger) *Calculator {
	if barsLimit <= 0 {
		barsLimit = defaultBarsLimit
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &Calculator{
		History:      history,
		Logger:       log,
		BarsLimit:    barsLimit,
		FetchTimeout: fetchTimeout,
		cache:        make(map[models.MBaselineKey]models.MBaseline),
	}
}

// -----------------------------------------------------------------------------

// Baseline returns the cached or freshly computed base value for one
// direction of a period. The second return value is false when the history
// fetch failed; nothing is cached in that case so a later call can retry.
func (c *Calculator) Baseline(ctx context.Context, symbol string, resolutionSeconds int, periodStartUnix int64, direction string) (decimal.Decimal, bool) {
	key := models.MBaselineKey{
		Symbol:            symbol,
		ResolutionSeconds: resolutionSeconds,
		PeriodStartUnix:   periodStartUnix,
	}

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return pick(cached, direction), true
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
	defer cancel()

	bars, err := c.History.FetchBars(fetchCtx, symbol, resolutionSeconds, c.BarsLimit, periodStartUnix)
	if err != nil {
		c.Logger.Warning("History fetch failed for %s/%d@%d: %v", symbol, resolutionSeconds, periodStartUnix, err)
		return decimal.Zero, false
	}

	computed := Compute(bars)

	c.mu.Lock()
	// First write wins so concurrent computations stay idempotent.
	if existing, ok := c.cache[key]; ok {
		computed = existing
	} else {
		c.cache[key] = computed
	}
	c.mu.Unlock()

	return pick(computed, direction), true
}

// -----------------------------------------------------------------------------

// Compute derives both directional baselines from a set of closed bars.
// Bars with close>open feed the up sample set, close<open the down set
// (as positive magnitudes); flat bars feed neither.
func Compute(bars []models.MBar) models.MBaseline {
	var upSamples, downSamples []decimal.Decimal

	for _, bar := range bars {
		diff := bar.Close.Sub(bar.Open)
		switch diff.Sign() {
		case 1:
			upSamples = append(upSamples, diff)
		case -1:
			downSamples = append(downSamples, diff.Neg())
		}
	}

	return models.MBaseline{
		BaseUp:   core.AverageAfterIQR(upSamples),
		BaseDown: core.AverageAfterIQR(downSamples),
	}
}

// -----------------------------------------------------------------------------

// CachedLen returns the number of cached baselines (health reporting).
func (c *Calculator) CachedLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// -----------------------------------------------------------------------------

func pick(b models.MBaseline, direction string) decimal.Decimal {
	if direction == models.DirectionDown {
		return b.BaseDown
	}
	return b.BaseUp
}
