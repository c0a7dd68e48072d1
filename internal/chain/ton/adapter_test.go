package ton

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/nodedir"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	rawAddress      = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	friendlyAddress = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
)

// ---------------------------------------------------------------------------
// TestValidateAddress
// ---------------------------------------------------------------------------

func TestValidateAddress(t *testing.T) {
	a := NewAdapter(newTestLogger())

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"raw basechain", rawAddress, true},
		{"raw masterchain", "-1:" + strings.Repeat("ab", 32), true},
		{"friendly", friendlyAddress, true},
		{"bad workchain", "2:" + strings.Repeat("ab", 32), false},
		{"raw body too short", "0:abcdef", false},
		{"friendly wrong length", friendlyAddress[:40], false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ValidateAddress(tt.address))
		})
	}
}

// ---------------------------------------------------------------------------
// TestFetchBalance_NodeAnswersFirstShape
// ---------------------------------------------------------------------------

func TestFetchBalance_NodeAnswersFirstShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/jsonrpc" {
			_, err := w.Write([]byte(`{"ok":true,"result":"987654321"}`))
			require.NoError(t, err)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	node := &nodedir.NodeDescriptor{
		ID:       "ton-1",
		Network:  "ton-mainnet",
		Endpoint: nodedir.Endpoints{TONV3: ts.URL},
	}

	a := NewAdapter(newTestLogger())

	result, err := a.FetchBalance(context.Background(), node, rawAddress)
	require.NoError(t, err)
	require.NotNil(t, result.Balance)
	assert.Equal(t, "987654321", *result.Balance)
	assert.Equal(t, "nanotons", result.Unit)
	assert.Equal(t, "ton-mainnet", result.Provider)
}

// ---------------------------------------------------------------------------
// TestFetchBalance_FallsThroughShapesToRESTGet
// ---------------------------------------------------------------------------

func TestFetchBalance_FallsThroughShapesToRESTGet(t *testing.T) {
	var getCalls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/getAddressBalance" {
			getCalls.Add(1)
			assert.Equal(t, rawAddress, r.URL.Query().Get("address"))
			_, err := w.Write([]byte(`{"ok":true,"result":"111"}`))
			require.NoError(t, err)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	node := &nodedir.NodeDescriptor{
		ID:       "ton-1",
		Network:  "ton-mainnet",
		Endpoint: nodedir.Endpoints{TONV3: ts.URL},
	}

	a := NewAdapter(newTestLogger())

	result, err := a.FetchBalance(context.Background(), node, rawAddress)
	require.NoError(t, err)
	assert.Equal(t, "111", *result.Balance)
	assert.Equal(t, int32(1), getCalls.Load())
}

// ---------------------------------------------------------------------------
// TestFetchBalance_ExplorerLastResort
// ---------------------------------------------------------------------------

func TestFetchBalance_ExplorerLastResort(t *testing.T) {
	nodeTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer nodeTS.Close()

	explorerTS := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v2/accounts/"))
		_, err := w.Write([]byte(`{"address":"` + rawAddress + `","balance":424242}`))
		require.NoError(t, err)
	}))
	defer explorerTS.Close()

	node := &nodedir.NodeDescriptor{
		ID:       "ton-1",
		Network:  "ton-mainnet",
		Endpoint: nodedir.Endpoints{TONV3: nodeTS.URL, TONV2: nodeTS.URL},
	}

	a := NewAdapter(newTestLogger(), WithExplorerURL(explorerTS.URL))

	result, err := a.FetchBalance(context.Background(), node, rawAddress)
	require.NoError(t, err)
	assert.Equal(t, "424242", *result.Balance)
	assert.Equal(t, "tonapi", result.Provider)
	assert.Empty(t, result.NodeID, "explorer results are not attributed to a node")
}

// ---------------------------------------------------------------------------
// TestFetchBalance_InvalidAddress
// ---------------------------------------------------------------------------

func TestFetchBalance_InvalidAddress(t *testing.T) {
	a := NewAdapter(newTestLogger())

	_, err := a.FetchBalance(context.Background(), nil, "definitely-not-ton")
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
}
