package baseline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

type fakeHistory struct {
	mu           sync.Mutex
	bars         []models.MBar
	barsBySymbol map[string][]models.MBar
	err          error
	calls        atomic.Int32
	blockCh      chan struct{}
}

func (f *fakeHistory) FetchBars(ctx context.Context, symbol string, resolutionSeconds int, limit int, endTime int64) ([]models.MBar, error) {
	f.calls.Add(1)
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.barsBySymbol != nil {
		return f.barsBySymbol[symbol], nil
	}
	return f.bars, nil
}

func bar(start int64, open, close float64) models.MBar {
	return models.MBar{
		StartTime: start,
		Open:      decimal.NewFromFloat(open),
		Close:     decimal.NewFromFloat(close),
	}
}

func newTestCalculator(h *fakeHistory) *Calculator {
	return NewCalculator(h, 20, 2*time.Second, logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestCompute_SplitsDirections(t *testing.T) {
	bars := []models.MBar{
		bar(0, 100, 102),   // up 2
		bar(60, 102, 101),  // down 1
		bar(120, 101, 101), // flat, ignored
		bar(180, 101, 105), // up 4
		bar(240, 105, 102), // down 3
	}

	b := Compute(bars)
	assert.Equal(t, "3", b.BaseUp.String())   // mean(2, 4)
	assert.Equal(t, "2", b.BaseDown.String()) // mean(1, 3) as positive magnitudes
}

func TestCompute_NoBars(t *testing.T) {
	b := Compute(nil)
	assert.True(t, b.BaseUp.IsZero())
	assert.True(t, b.BaseDown.IsZero())
}

// -----------------------------------------------------------------------------

func TestBaseline_CachesPerPeriod(t *testing.T) {
	h := &fakeHistory{bars: []models.MBar{bar(0, 100, 102), bar(60, 102, 104)}}
	c := newTestCalculator(h)

	v1, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, "2", v1.String())

	// Second call for the same period hits the cache.
	v2, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	require.True(t, ok)
	assert.True(t, v1.Equal(v2))
	assert.Equal(t, int32(1), h.calls.Load())
	assert.Equal(t, 1, c.CachedLen())
}

func TestBaseline_DirectionsShareOneComputation(t *testing.T) {
	h := &fakeHistory{bars: []models.MBar{bar(0, 100, 102), bar(60, 102, 99)}}
	c := newTestCalculator(h)

	up, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	require.True(t, ok)
	down, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionDown)
	require.True(t, ok)

	assert.Equal(t, "2", up.String())
	assert.Equal(t, "3", down.String())
	assert.Equal(t, int32(1), h.calls.Load())
}

func TestBaseline_FetchErrorIsNotCached(t *testing.T) {
	h := &fakeHistory{err: errors.New("upstream down")}
	c := newTestCalculator(h)

	_, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	assert.False(t, ok)
	assert.Equal(t, 0, c.CachedLen())

	// Upstream recovers; the next call retries and caches.
	h.mu.Lock()
	h.err = nil
	h.bars = []models.MBar{bar(0, 100, 101)}
	h.mu.Unlock()

	v, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, "1", v.String())
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestBaseline_HonoursTimeout(t *testing.T) {
	h := &fakeHistory{blockCh: make(chan struct{})}
	c := NewCalculator(h, 20, 50*time.Millisecond, logger.NewLogger("ERROR", "test"))

	start := time.Now()
	_, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBaseline_SymbolsCachedSeparately(t *testing.T) {
	h := &fakeHistory{barsBySymbol: map[string][]models.MBar{
		"BTCUSDT": {bar(0, 100, 110)}, // up 10
		"ETHUSDT": {bar(0, 100, 101)}, // up 1
	}}
	c := newTestCalculator(h)

	btc, ok := c.Baseline(context.Background(), "BTCUSDT", 300, 1000, models.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, "10", btc.String())

	// Same (resolution, period) on another symbol computes its own baseline.
	eth, ok := c.Baseline(context.Background(), "ETHUSDT", 300, 1000, models.DirectionUp)
	require.True(t, ok)
	assert.Equal(t, "1", eth.String())

	assert.Equal(t, 2, c.CachedLen())
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestBaseline_DistinctPeriodsCachedSeparately(t *testing.T) {
	h := &fakeHistory{bars: []models.MBar{bar(0, 100, 102)}}
	c := newTestCalculator(h)

	_, ok := c.Baseline(context.Background(), "BTCUSDT", 60, 120, models.DirectionUp)
	require.True(t, ok)
	_, ok = c.Baseline(context.Background(), "BTCUSDT", 60, 180, models.DirectionUp)
	require.True(t, ok)

	assert.Equal(t, 2, c.CachedLen())
	assert.Equal(t, int32(2), h.calls.Load())
}
