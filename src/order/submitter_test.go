package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

type fakeNetwork struct {
	response      []byte
	err           error
	lastURL       string
	lastBody      []byte
	attempts      int
	retryingPosts int
}

func (f *fakeNetwork) Get(url string, params map[string]string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeNetwork) Post(url string, body []byte) ([]byte, error) {
	f.retryingPosts++
	return nil, errors.New("not used")
}

func (f *fakeNetwork) PostOnce(url string, body []byte) ([]byte, error) {
	f.attempts++
	f.lastURL = url
	f.lastBody = body
	return f.response, f.err
}

func newTestSubmitter(net *fakeNetwork) *RestSubmitter {
	cfg := &models.MConfig{LogLevel: "ERROR"}
	cfg.Order.BaseURL = "http://orders.local"
	return NewRestSubmitter(cfg, net)
}

func testStrategy() models.MStrategyConfig {
	return models.MStrategyConfig{
		ID:        "s1",
		Symbol:    "BTCUSDT",
		Direction: models.DirectionUp,
		Amount:    10,
	}
}

// -----------------------------------------------------------------------------

func TestSubmitOrder_Success(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{"order_id": "order-77"}`)}
	s := newTestSubmitter(net)

	orderID, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	require.NoError(t, err)
	assert.Equal(t, "order-77", orderID)
	assert.Equal(t, "http://orders.local/api/orders", net.lastURL)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(net.lastBody, &req))
	assert.Equal(t, "s1", req["strategy_id"])
	assert.Equal(t, "BTCUSDT", req["symbol"])
	assert.Equal(t, "up", req["direction"])
	assert.EqualValues(t, 10, req["amount"])
	assert.EqualValues(t, 1200, req["period_start"])
}

func TestSubmitOrder_Rejected(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{"error": "insufficient balance"}`)}
	s := newTestSubmitter(net)

	_, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestSubmitOrder_NetworkError(t *testing.T) {
	net := &fakeNetwork{err: errors.New("connection refused")}
	s := newTestSubmitter(net)

	_, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	assert.Error(t, err)
}

func TestSubmitOrder_OneAttemptPerCall(t *testing.T) {
	// A lost response may mean the order executed upstream; the submitter
	// must never go through the retrying POST path.
	net := &fakeNetwork{err: errors.New("response lost: status 500")}
	s := newTestSubmitter(net)

	_, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	require.Error(t, err)
	assert.Equal(t, 1, net.attempts)
	assert.Zero(t, net.retryingPosts)
}

func TestSubmitOrder_MissingOrderID(t *testing.T) {
	net := &fakeNetwork{response: []byte(`{}`)}
	s := newTestSubmitter(net)

	_, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_id")
}

func TestSubmitOrder_BadResponse(t *testing.T) {
	net := &fakeNetwork{response: []byte("<html>")}
	s := newTestSubmitter(net)

	_, err := s.SubmitOrder(context.Background(), testStrategy(), 1200)
	assert.Error(t, err)
}
