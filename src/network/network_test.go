package network

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/logger"
	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

func testManager(proxies ...string) *AsyncNetworkManager {
	cfg := &models.MConfig{LogLevel: "ERROR"}
	cfg.Network.RequestTimeout = 2
	cfg.Network.MaxRetries = 0
	if len(proxies) > 0 {
		cfg.Network.Enabled = true
		cfg.Network.Proxies = proxies
	}
	return NewAsyncNetworkManager(cfg, logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestPostOnce_Success(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	nm := testManager()
	body, err := nm.PostOnce(srv.URL, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(1), posts.Load())
}

func TestPostOnce_SingleRequestOnServerError(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	nm := testManager()
	_, err := nm.PostOnce(srv.URL, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	// One call, one request on the wire: a lost response must not re-issue.
	assert.Equal(t, int32(1), posts.Load())
}

// -----------------------------------------------------------------------------

func TestGet_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	nm := testManager()
	body, err := nm.Get(srv.URL, map[string]string{"symbol": "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

// -----------------------------------------------------------------------------

func TestConcurrentRequestsDuringProxyRotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// rotatingProxies hands back direct connections, so every rotation
	// rebuilds the client while requests are in flight.
	nm := testManager()
	nm.ProxyManager = rotatingProxies{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := nm.Get(srv.URL, nil); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		nm.rotateProxy()
	}
	wg.Wait()
}

// rotatingProxies claims proxies exist but hands back a direct connection, so
// rotateProxy rebuilds the client on every call.
type rotatingProxies struct{}

func (rotatingProxies) GetCurrentProxy() (string, error) { return "", nil }
func (rotatingProxies) RotateProxy()                     {}
func (rotatingProxies) HasProxies() bool                 { return true }
func (rotatingProxies) GetUserAgent() string             { return "test" }
