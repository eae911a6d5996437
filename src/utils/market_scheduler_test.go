package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/logger"
)

// -----------------------------------------------------------------------------

func TestGetCalendar_SuffixlessSymbolIsAlwaysOpen(t *testing.T) {
	cal := GetCalendar("BTCUSDT")
	require.NotNil(t, cal)
	assert.True(t, cal.AlwaysOpen)
}

func TestGetCalendar_ExchangeSuffix(t *testing.T) {
	cal := GetCalendar("AAPL.L")
	require.NotNil(t, cal)
	assert.False(t, cal.AlwaysOpen)
}

// -----------------------------------------------------------------------------

func TestIsMarketOpen_CryptoAlwaysOpen(t *testing.T) {
	ms := NewMarketScheduler([]string{"BTCUSDT", "ETHUSDT"}, logger.NewLogger("ERROR", "test"))
	assert.True(t, ms.IsMarketOpen("BTCUSDT"))
	assert.True(t, ms.AnyMarketOpen())
}

func TestIsMarketOpen_UnknownSymbolMappedOnDemand(t *testing.T) {
	ms := NewMarketScheduler(nil, logger.NewLogger("ERROR", "test"))
	assert.True(t, ms.IsMarketOpen("SOLUSDT"))

	ms.mu.RLock()
	_, mapped := ms.Calendars["SOLUSDT"]
	ms.mu.RUnlock()
	assert.True(t, mapped)
}

func TestAnyMarketOpen_EmptyScheduler(t *testing.T) {
	ms := NewMarketScheduler(nil, logger.NewLogger("ERROR", "test"))
	assert.False(t, ms.AnyMarketOpen())
}

func TestUpdateSymbols_Replaces(t *testing.T) {
	ms := NewMarketScheduler([]string{"BTCUSDT"}, logger.NewLogger("ERROR", "test"))
	ms.UpdateSymbols([]string{"ETHUSDT"})

	ms.mu.RLock()
	_, old := ms.Calendars["BTCUSDT"]
	_, fresh := ms.Calendars["ETHUSDT"]
	ms.mu.RUnlock()

	assert.False(t, old)
	assert.True(t, fresh)
}
