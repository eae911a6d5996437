package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

type fakeNetwork struct {
	mu        sync.Mutex
	response  []byte
	err       error
	block     chan struct{}
	lastURL   string
	lastQuery map[string]string
}

func (f *fakeNetwork) Get(url string, params map[string]string) ([]byte, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastURL = url
	f.lastQuery = params
	return f.response, f.err
}

func (f *fakeNetwork) Post(url string, body []byte) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeNetwork) PostOnce(url string, body []byte) ([]byte, error) {
	return nil, errors.New("not used")
}

func newTestClient(net *fakeNetwork) *ChartClient {
	cfg := &models.MConfig{LogLevel: "ERROR"}
	cfg.History.BaseURL = "http://history.local"
	return NewChartClient(cfg, net)
}

// -----------------------------------------------------------------------------

func TestFetchBars_ParsesAndSorts(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{
		"bars": [
			{"t": 1260, "o": "102", "c": "104"},
			{"t": 1200, "o": "100", "c": "102"}
		]
	}`)}
	client := newTestClient(net)

	bars, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, int64(1200), bars[0].StartTime)
	assert.Equal(t, int64(1260), bars[1].StartTime)
	assert.Equal(t, "100", bars[0].Open.String())
	assert.Equal(t, "104", bars[1].Close.String())

	assert.Equal(t, "http://history.local/api/market/bars", net.lastURL)
	assert.Equal(t, "BTCUSDT", net.lastQuery["symbol"])
	assert.Equal(t, "60", net.lastQuery["resolution"])
	assert.Equal(t, "1320", net.lastQuery["end"])
}

func TestFetchBars_DropsUnclosedAndEmptyBars(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{
		"bars": [
			{"t": 1200, "o": "100", "c": "102"},
			{"t": 1260, "o": "0", "c": "0"},
			{"t": 1320, "o": "103", "c": "104"}
		]
	}`)}
	client := newTestClient(net)

	// endTime 1320: the bar starting at 1320 is not closed yet.
	bars, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1200), bars[0].StartTime)
}

func TestFetchBars_UpstreamError(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{"error": {"code": "RATE_LIMIT", "description": "slow down"}}`)}
	client := newTestClient(net)

	_, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT")
}

func TestFetchBars_NetworkError(t *testing.T) {
	net := &fakeNetwork{err: errors.New("connection refused")}
	client := newTestClient(net)

	_, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	assert.Error(t, err)
}

func TestFetchBars_BadJSON(t *testing.T) {
	net := &fakeNetwork{response: []byte("<html>oops</html>")}
	client := newTestClient(net)

	_, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	assert.Error(t, err)
}

func TestFetchBars_NoValidBars(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{"bars": []}`)}
	client := newTestClient(net)

	_, err := client.FetchBars(context.Background(), "BTCUSDT", 60, 20, 1320)
	assert.Error(t, err)
}

func TestFetchBars_CancelledContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	net := &fakeNetwork{block: block}
	client := newTestClient(net)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchBars(ctx, "BTCUSDT", 60, 20, 1320)
	assert.ErrorIs(t, err, context.Canceled)
}
