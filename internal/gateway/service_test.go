package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/btc"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/fallback"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter implements chain.Adapter plus the optional interfaces the
// orchestrator probes for.
type fakeAdapter struct {
	chainID      model.Chain
	balance      string
	fetchErr     error
	broadcastErr error
	validAddr    bool
	fetchCalls   int
}

func (f *fakeAdapter) Chain() model.Chain { return f.chainID }

func (f *fakeAdapter) ValidateAddress(string) bool { return f.validAddr }

func (f *fakeAdapter) FetchBalance(_ context.Context, node *nodedir.NodeDescriptor, _ string) (*model.BalanceResult, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &model.BalanceResult{
		Chain:    f.chainID,
		Balance:  model.StringPtr(f.balance),
		Unit:     f.chainID.Unit(),
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

func (f *fakeAdapter) Broadcast(_ context.Context, node *nodedir.NodeDescriptor, _ string) (*model.BroadcastResult, error) {
	if f.broadcastErr != nil {
		return nil, f.broadcastErr
	}
	return &model.BroadcastResult{
		Chain:    f.chainID,
		TxID:     model.StringPtr("tx-1"),
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// viewOnlyAdapter has no Broadcast method.
type viewOnlyAdapter struct {
	chainID model.Chain
}

func (v *viewOnlyAdapter) Chain() model.Chain { return v.chainID }

func (v *viewOnlyAdapter) FetchBalance(context.Context, *nodedir.NodeDescriptor, string) (*model.BalanceResult, error) {
	return nil, errors.New("unused")
}

type stubNodeSource struct {
	nodes   []nodedir.NodeDescriptor
	listErr error
	matches map[model.Chain]int
}

func (s *stubNodeSource) ListNodes(context.Context) ([]nodedir.NodeDescriptor, error) {
	return s.nodes, s.listErr
}

func (s *stubNodeSource) SelectNodeForChain(nodes []nodedir.NodeDescriptor, c model.Chain) *nodedir.NodeDescriptor {
	if idx, ok := s.matches[c]; ok && idx < len(nodes) {
		return &nodes[idx]
	}
	return nil
}

type stubFallback struct {
	name    string
	balance string
	err     error
	calls   int
}

func (s *stubFallback) Name() string { return s.name }

func (s *stubFallback) FetchBalance(context.Context, string) (*model.BalanceResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &model.BalanceResult{
		Chain:    model.ChainBitcoin,
		Balance:  model.StringPtr(s.balance),
		Unit:     "satoshi",
		Provider: s.name,
	}, nil
}

func oneNodeSource(c model.Chain) *stubNodeSource {
	return &stubNodeSource{
		nodes:   []nodedir.NodeDescriptor{{ID: "n1", Network: "test-mainnet", Status: nodedir.StatusRunning}},
		matches: map[model.Chain]int{c: 0},
	}
}

// ---------------------------------------------------------------------------
// TestBalance_InputValidation
// ---------------------------------------------------------------------------

func TestBalance_InputValidation(t *testing.T) {
	eth := &fakeAdapter{chainID: model.ChainEthereum, balance: "1", validAddr: true}
	svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

	t.Run("malformed chain key", func(t *testing.T) {
		_, err := svc.Balance(context.Background(), "ETH!", "0xabc", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidChainKey)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})

	t.Run("unknown chain", func(t *testing.T) {
		_, err := svc.Balance(context.Background(), "dogecoin", "addr", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownChain)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})

	t.Run("invalid address fails before any node work", func(t *testing.T) {
		bad := &fakeAdapter{chainID: model.ChainEthereum, validAddr: false}
		svc := NewService([]chain.Adapter{bad}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		_, err := svc.Balance(context.Background(), "eth", "nope", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, chain.ErrInvalidAddress)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
		assert.Zero(t, bad.fetchCalls)
	})

	t.Run("chain alias resolves", func(t *testing.T) {
		outcome, err := svc.Balance(context.Background(), "ethereum", "0xabc", "")
		require.NoError(t, err)
		assert.Equal(t, "1", *outcome.Result.Balance)
	})

	t.Run("chain key is case-insensitive", func(t *testing.T) {
		outcome, err := svc.Balance(context.Background(), "ETH", "0xabc", "")
		require.NoError(t, err)
		assert.Equal(t, model.ChainEthereum, outcome.Result.Chain)
	})
}

// ---------------------------------------------------------------------------
// TestBalance_NodePathSuccess
// ---------------------------------------------------------------------------

func TestBalance_NodePathSuccess(t *testing.T) {
	eth := &fakeAdapter{chainID: model.ChainEthereum, balance: "42", validAddr: true}
	svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

	outcome, err := svc.Balance(context.Background(), "eth", "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, "42", *outcome.Result.Balance)
	assert.Equal(t, "test-mainnet", outcome.Result.Provider)
	assert.Empty(t, outcome.FallbackReason)
	assert.False(t, outcome.OverrideIgnored)
}

// ---------------------------------------------------------------------------
// TestBalance_NonBitcoinFailuresAreTerminal
// ---------------------------------------------------------------------------

func TestBalance_NonBitcoinFailuresAreTerminal(t *testing.T) {
	t.Run("no node", func(t *testing.T) {
		eth := &fakeAdapter{chainID: model.ChainEthereum, validAddr: true}
		svc := NewService([]chain.Adapter{eth}, &stubNodeSource{}, nil, newTestLogger())

		_, err := svc.Balance(context.Background(), "eth", "0xabc", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoNode)
		assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
	})

	t.Run("directory unavailable", func(t *testing.T) {
		eth := &fakeAdapter{chainID: model.ChainEthereum, validAddr: true}
		src := &stubNodeSource{listErr: fmt.Errorf("%w: boom", nodedir.ErrUnavailable)}
		svc := NewService([]chain.Adapter{eth}, src, nil, newTestLogger())

		_, err := svc.Balance(context.Background(), "eth", "0xabc", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, nodedir.ErrUnavailable)
		assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
	})

	t.Run("upstream status passes through", func(t *testing.T) {
		eth := &fakeAdapter{
			chainID:   model.ChainEthereum,
			validAddr: true,
			fetchErr:  &chain.UpstreamError{Status: http.StatusTooManyRequests, Body: "slow down"},
		}
		svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		_, err := svc.Balance(context.Background(), "eth", "0xabc", "")
		require.Error(t, err)
		assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(err))
	})
}

// ---------------------------------------------------------------------------
// TestBalance_BitcoinCascade
// ---------------------------------------------------------------------------

func TestBalance_BitcoinCascade(t *testing.T) {
	scanErr := fmt.Errorf("%w: scantxoutset disabled", btc.ErrScanUnavailable)

	t.Run("first provider wins", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true, fetchErr: scanErr}
		first := &stubFallback{name: "chainz", balance: "5000"}
		second := &stubFallback{name: "blockstream", balance: "5000"}
		svc := NewService([]chain.Adapter{bitcoin}, oneNodeSource(model.ChainBitcoin),
			[]fallback.Provider{first, second}, newTestLogger())

		outcome, err := svc.Balance(context.Background(), "btc", "1addr", "")
		require.NoError(t, err)
		assert.Equal(t, "5000", *outcome.Result.Balance)
		assert.Equal(t, "chainz", outcome.Result.Provider)
		assert.Equal(t, "scan-unavailable", outcome.FallbackReason)
		assert.Equal(t, 1, first.calls)
		assert.Zero(t, second.calls)
	})

	t.Run("second provider after first fails", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true, fetchErr: scanErr}
		first := &stubFallback{name: "chainz", err: errors.New("quota exceeded")}
		second := &stubFallback{name: "blockstream", balance: "7000"}
		svc := NewService([]chain.Adapter{bitcoin}, oneNodeSource(model.ChainBitcoin),
			[]fallback.Provider{first, second}, newTestLogger())

		outcome, err := svc.Balance(context.Background(), "btc", "1addr", "")
		require.NoError(t, err)
		assert.Equal(t, "blockstream", outcome.Result.Provider)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
	})

	t.Run("all providers fail surfaces primary error", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true, fetchErr: scanErr}
		first := &stubFallback{name: "chainz", err: errors.New("down")}
		second := &stubFallback{name: "blockstream", err: errors.New("also down")}
		svc := NewService([]chain.Adapter{bitcoin}, oneNodeSource(model.ChainBitcoin),
			[]fallback.Provider{first, second}, newTestLogger())

		_, err := svc.Balance(context.Background(), "btc", "1addr", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, btc.ErrScanUnavailable)
	})

	t.Run("cascade also runs when no bitcoin node exists", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true}
		provider := &stubFallback{name: "chainz", balance: "1"}
		svc := NewService([]chain.Adapter{bitcoin}, &stubNodeSource{},
			[]fallback.Provider{provider}, newTestLogger())

		outcome, err := svc.Balance(context.Background(), "btc", "1addr", "")
		require.NoError(t, err)
		assert.Equal(t, "no-node", outcome.FallbackReason)
		assert.Zero(t, bitcoin.fetchCalls)
	})
}

// ---------------------------------------------------------------------------
// TestBalance_ProviderOverride
// ---------------------------------------------------------------------------

func TestBalance_ProviderOverride(t *testing.T) {
	t.Run("bitcoin override skips the node path", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true}
		provider := &stubFallback{name: "blockstream", balance: "9999"}
		svc := NewService([]chain.Adapter{bitcoin}, &stubNodeSource{},
			[]fallback.Provider{provider}, newTestLogger())

		outcome, err := svc.Balance(context.Background(), "btc", "1addr", "blockstream")
		require.NoError(t, err)
		assert.Equal(t, "9999", *outcome.Result.Balance)
		assert.Equal(t, "blockstream", outcome.Result.Provider)
		assert.Zero(t, bitcoin.fetchCalls)
		assert.Empty(t, outcome.FallbackReason)
	})

	t.Run("override on other chains is ignored", func(t *testing.T) {
		eth := &fakeAdapter{chainID: model.ChainEthereum, balance: "3", validAddr: true}
		svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		outcome, err := svc.Balance(context.Background(), "eth", "0xabc", "chainz")
		require.NoError(t, err)
		assert.True(t, outcome.OverrideIgnored)
		assert.Equal(t, "3", *outcome.Result.Balance)
		assert.Equal(t, 1, eth.fetchCalls)
	})

	t.Run("unknown override name rejected", func(t *testing.T) {
		bitcoin := &fakeAdapter{chainID: model.ChainBitcoin, validAddr: true}
		svc := NewService([]chain.Adapter{bitcoin}, &stubNodeSource{}, nil, newTestLogger())

		_, err := svc.Balance(context.Background(), "btc", "1addr", "nonsense")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})
}

// ---------------------------------------------------------------------------
// TestBroadcast
// ---------------------------------------------------------------------------

func TestBroadcast(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		eth := &fakeAdapter{chainID: model.ChainEthereum, validAddr: true}
		svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		result, err := svc.Broadcast(context.Background(), "eth", "0xf86c")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", *result.TxID)
	})

	t.Run("empty payload", func(t *testing.T) {
		eth := &fakeAdapter{chainID: model.ChainEthereum, validAddr: true}
		svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		_, err := svc.Broadcast(context.Background(), "eth", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("chain without broadcast support", func(t *testing.T) {
		view := &viewOnlyAdapter{chainID: model.ChainTON}
		svc := NewService([]chain.Adapter{view}, oneNodeSource(model.ChainTON), nil, newTestLogger())

		_, err := svc.Broadcast(context.Background(), "ton", "payload")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBroadcastUnsupported)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})

	t.Run("invalid payload maps to 400", func(t *testing.T) {
		eth := &fakeAdapter{
			chainID:      model.ChainEthereum,
			validAddr:    true,
			broadcastErr: fmt.Errorf("%w: bad hex", chain.ErrInvalidPayload),
		}
		svc := NewService([]chain.Adapter{eth}, oneNodeSource(model.ChainEthereum), nil, newTestLogger())

		_, err := svc.Broadcast(context.Background(), "eth", "zzz")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	})
}

// ---------------------------------------------------------------------------
// TestHTTPStatus_CodecErrors
// ---------------------------------------------------------------------------

func TestHTTPStatus_CodecErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		HTTPStatus(fmt.Errorf("decode: %w", numeric.ErrMalformedNumber)))
	assert.Equal(t, http.StatusBadRequest,
		HTTPStatus(fmt.Errorf("scale: %w", numeric.ErrPrecisionExceeded)))
	assert.Equal(t, http.StatusBadGateway,
		HTTPStatus(errors.New("something else entirely")))
}
