package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// HTTP client for the historical-data collaborator. Returns fully-closed bars
// ending at a given time; any transport or payload error fails soft at the
// caller (absent baseline), never fatal.
// -----------------------------------------------------------------------------

type ChartClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewChartClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *ChartClient {
	return &ChartClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(cfg.LogLevel, "ChartClient"),
	}
}

// -----------------------------------------------------------------------------

type chartResponse struct {
	Bars []struct {
		StartTime int64           `json:"t"`
		Open      decimal.Decimal `json:"o"`
		Close     decimal.Decimal `json:"c"`
	} `json:"bars"`
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// -----------------------------------------------------------------------------

// FetchBars requests the last `limit` closed bars ending at endTime
// (exclusive). The request runs under the caller's context so a hung upstream
// turns into a bounded error, not a stall.
func (c *ChartClient) FetchBars(ctx context.Context, symbol string, resolutionSeconds int, limit int, endTime int64) ([]models.MBar, error) {
	params := map[string]string{
		"symbol":     symbol,
		"resolution": strconv.Itoa(resolutionSeconds),
		"limit":      strconv.Itoa(limit),
		"end":        strconv.FormatInt(endTime, 10),
	}

	url := fmt.Sprintf("%s/api/market/bars", c.Config.History.BaseURL)

	type result struct {
		body []byte
		err  error
	}
	resCh := make(chan result, 1)

	go func() {
		body, err := c.Network.Get(url, params)
		resCh <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resCh:
		if res.err != nil {
			return nil, fmt.Errorf("network error for %s: %w", symbol, res.err)
		}
		return c.parseBars(symbol, endTime, res.body)
	}
}

// -----------------------------------------------------------------------------

func (c *ChartClient) parseBars(symbol string, endTime int64, data []byte) ([]models.MBar, error) {
	var resp chartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("chart api error: %s - %s", resp.Error.Code, resp.Error.Description)
	}

	bars := make([]models.MBar, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		// Only fully-closed bars strictly before the requested end survive.
		if b.StartTime >= endTime {
			continue
		}
		if b.Open.IsZero() && b.Close.IsZero() {
			c.Logger.Debug("Skipping empty bar for %s at %d", symbol, b.StartTime)
			continue
		}
		bars = append(bars, models.MBar{
			StartTime: b.StartTime,
			Open:      b.Open,
			Close:     b.Close,
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].StartTime < bars[j].StartTime
	})

	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid bars for %s", symbol)
	}

	c.Logger.Debug("Fetched %s: %d bars [%d -> %d]", symbol, len(bars), bars[0].StartTime, bars[len(bars)-1].StartTime)
	return bars, nil
}
