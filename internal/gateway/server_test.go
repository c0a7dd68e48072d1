package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/btc"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/fallback"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T, adapters []chain.Adapter, source NodeSource, fallbacks []fallback.Provider) *httptest.Server {
	t.Helper()
	svc := NewService(adapters, source, fallbacks, newTestLogger())
	ts := httptest.NewServer(NewServer(svc, newTestLogger()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

// ---------------------------------------------------------------------------
// TestBalanceEndpoint
// ---------------------------------------------------------------------------

func TestBalanceEndpoint(t *testing.T) {
	eth := &fakeAdapter{chainID: model.ChainEthereum, balance: "1000", validAddr: true}
	ts := newTestServer(t, []chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil)

	t.Run("success", func(t *testing.T) {
		resp, body := getJSON(t, ts.URL+"/private-api/balance/eth/0xabc")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, "test-mainnet", resp.Header.Get("x-provider"))
		assert.NotEmpty(t, resp.Header.Get("x-request-id"))

		assert.Equal(t, "eth", body["chain"])
		assert.Equal(t, "1000", body["balance"])
		assert.Equal(t, "wei", body["unit"])
	})

	t.Run("unknown chain is a 400", func(t *testing.T) {
		resp, body := getJSON(t, ts.URL+"/private-api/balance/dogecoin/addr")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["error"], "unknown chain")
	})

	t.Run("no node is a 502", func(t *testing.T) {
		sol := &fakeAdapter{chainID: model.ChainSolana, validAddr: true}
		ts := newTestServer(t, []chain.Adapter{sol}, &stubNodeSource{}, nil)

		resp, _ := getJSON(t, ts.URL+"/private-api/balance/sol/someaddress")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("override ignored header on non-bitcoin chains", func(t *testing.T) {
		resp, _ := getJSON(t, ts.URL+"/private-api/balance/eth/0xabc?provider=chainz")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", resp.Header.Get("x-provider-override-ignored"))
	})

	t.Run("incoming request id echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/private-api/balance/eth/0xabc", nil)
		require.NoError(t, err)
		req.Header.Set("x-request-id", "req-42")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "req-42", resp.Header.Get("x-request-id"))
	})
}

// ---------------------------------------------------------------------------
// TestBalanceEndpoint_BitcoinFallback
// ---------------------------------------------------------------------------

func TestBalanceEndpoint_BitcoinFallback(t *testing.T) {
	bitcoin := &fakeAdapter{
		chainID:   model.ChainBitcoin,
		validAddr: true,
		fetchErr:  fmt.Errorf("%w: disabled by provider", btc.ErrScanUnavailable),
	}
	provider := &stubFallback{name: "chainz", balance: "150000000"}
	ts := newTestServer(t, []chain.Adapter{bitcoin}, oneNodeSource(model.ChainBitcoin),
		[]fallback.Provider{provider})

	resp, body := getJSON(t, ts.URL+"/private-api/balance/btc/1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "chainz", resp.Header.Get("x-provider"))
	assert.Equal(t, "scan-unavailable", resp.Header.Get("x-fallback-reason"))
	assert.Equal(t, "150000000", body["balance"])
}

// ---------------------------------------------------------------------------
// TestBroadcastEndpoint
// ---------------------------------------------------------------------------

func TestBroadcastEndpoint(t *testing.T) {
	eth := &fakeAdapter{chainID: model.ChainEthereum, validAddr: true}
	ts := newTestServer(t, []chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil)

	post := func(t *testing.T, path, body string) (*http.Response, map[string]interface{}) {
		t.Helper()
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })

		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		return resp, decoded
	}

	t.Run("signedPayload field", func(t *testing.T) {
		resp, body := post(t, "/private-api/broadcast/eth", `{"signedPayload":"0xf86c"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "tx-1", body["txId"])
	})

	t.Run("rawTransaction field accepted too", func(t *testing.T) {
		resp, _ := post(t, "/private-api/broadcast/eth", `{"rawTransaction":"0xf86c"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing payload is a 400", func(t *testing.T) {
		resp, _ := post(t, "/private-api/broadcast/eth", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed JSON body is a 400", func(t *testing.T) {
		resp, _ := post(t, "/private-api/broadcast/eth", `{nope`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("balance route rejects POST", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/private-api/balance/eth/0xabc", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

// ---------------------------------------------------------------------------
// TestHealthz
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil, &stubNodeSource{}, nil)

	resp, body := getJSON(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
