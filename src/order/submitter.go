package order

import (
	"context"
	"encoding/json"
	"fmt"

	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------
// REST order submitter. One shot per call: the evaluator already owns the
// at-most-once guarantee, so no retries happen here — a failed submission is
// reported back and the period stays consumed.
// -----------------------------------------------------------------------------

type RestSubmitter struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRestSubmitter(cfg *models.MConfig, netMgr interfaces.INetworkManager) *RestSubmitter {
	return &RestSubmitter{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(cfg.LogLevel, "RestSubmitter"),
	}
}

// -----------------------------------------------------------------------------

type orderRequest struct {
	StrategyID  string  `json:"strategy_id"`
	Symbol      string  `json:"symbol"`
	Direction   string  `json:"direction"`
	Amount      float64 `json:"amount"`
	PeriodStart int64   `json:"period_start"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
}

// -----------------------------------------------------------------------------

// SubmitOrder places an order for the strategy's configured amount and returns
// the upstream order id.
func (s *RestSubmitter) SubmitOrder(ctx context.Context, strategy models.MStrategyConfig, periodStartUnix int64) (string, error) {
	req := orderRequest{
		StrategyID:  strategy.ID,
		Symbol:      strategy.Symbol,
		Direction:   strategy.Direction,
		Amount:      strategy.Amount,
		PeriodStart: periodStartUnix,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	url := fmt.Sprintf("%s/api/orders", s.Config.Order.BaseURL)

	type result struct {
		data []byte
		err  error
	}
	resCh := make(chan result, 1)

	// A single attempt only. The retrying Post would re-issue the request on a
	// lost response, and a re-issued order is a duplicate order.
	go func() {
		data, err := s.Network.PostOnce(url, body)
		resCh <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resCh:
		if res.err != nil {
			return "", fmt.Errorf("order post failed: %w", res.err)
		}

		var resp orderResponse
		if err := json.Unmarshal(res.data, &resp); err != nil {
			return "", fmt.Errorf("unmarshal order response: %w", err)
		}
		if resp.Error != "" {
			return "", fmt.Errorf("order rejected: %s", resp.Error)
		}
		if resp.OrderID == "" {
			return "", fmt.Errorf("order response missing order_id")
		}

		s.Logger.Info("Order %s placed (%s %s x%.4f for period %d)",
			resp.OrderID, strategy.Symbol, strategy.Direction, strategy.Amount, periodStartUnix)
		return resp.OrderID, nil
	}
}
