// Package tron implements the balance/broadcast contract against Tron's
// EVM-compatible JSON-RPC surface. Addresses arrive base58check-encoded and
// are decoded to hex before the RPC call.
package tron

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/evm"
	"github.com/ecency/vision-api/internal/chain/evm/rpc"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

type Adapter struct {
	timeout time.Duration
	logger  *slog.Logger
	limiter *ratelimit.Limiter
}

func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{
		timeout: 8 * time.Second,
		logger:  logger.With("component", "tron-adapter"),
		limiter: ratelimit.NewLimiter(20, 40, model.ChainTron.String()),
	}
}

func (a *Adapter) Chain() model.Chain {
	return model.ChainTron
}

// ValidateAddress accepts base58check T-addresses and their hex forms.
func (a *Adapter) ValidateAddress(address string) bool {
	_, err := hexAddress(address)
	return err == nil
}

// FetchBalance decodes the address to hex, calls eth_getBalance, and reports
// the result in sun.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	hexAddr, err := hexAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a tron address", chain.ErrInvalidAddress, address)
	}

	hexBalance, err := a.client(node).GetBalance(ctx, hexAddr)
	if err != nil {
		return nil, err
	}

	balance, err := numeric.HexToDecimalString(hexBalance)
	if err != nil {
		return nil, fmt.Errorf("decode balance %q: %w", hexBalance, err)
	}

	raw, _ := json.Marshal(map[string]string{"result": hexBalance, "address": hexAddr})
	return &model.BalanceResult{
		Chain:    model.ChainTron,
		Balance:  model.StringPtr(balance),
		Unit:     model.ChainTron.Unit(),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// Broadcast submits a hex-encoded signed transaction over the same RPC shape
// the EVM adapter uses.
func (a *Adapter) Broadcast(ctx context.Context, node *nodedir.NodeDescriptor, payload string) (*model.BroadcastResult, error) {
	signed, err := evm.NormalizeHexPayload(payload)
	if err != nil {
		return nil, err
	}

	txHash, err := a.client(node).SendRawTransaction(ctx, signed)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]string{"result": txHash})
	return &model.BroadcastResult{
		Chain:    model.ChainTron,
		TxID:     model.StringPtr(txHash),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

func (a *Adapter) client(node *nodedir.NodeDescriptor) *rpc.Client {
	opts := []rpc.Option{
		rpc.WithTimeout(a.timeout),
		rpc.WithRateLimiter(a.limiter),
		rpc.WithChainLabel(model.ChainTron.String()),
	}
	if node.Auth.Username != "" || node.Auth.Password != "" {
		opts = append(opts, rpc.WithBasicAuth(node.Auth.Username, node.Auth.Password))
	}
	return rpc.NewClient(node.Endpoint.HTTPS, a.logger, opts...)
}
