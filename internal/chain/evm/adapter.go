// Package evm implements the balance/broadcast contract for EVM-family
// chains (Ethereum, BNB). Chain-specific packages wrap NewAdapterWithChain.
package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/evm/rpc"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Adapter speaks the Ethereum JSON-RPC dialect.
type Adapter struct {
	chain   model.Chain
	timeout time.Duration
	logger  *slog.Logger
	limiter *ratelimit.Limiter
}

// NewAdapterWithChain creates an EVM adapter reporting itself as the given
// chain.
func NewAdapterWithChain(chainKey model.Chain, logger *slog.Logger) *Adapter {
	return &Adapter{
		chain:   chainKey,
		timeout: 8 * time.Second,
		logger:  logger.With("component", "evm-adapter", "chain", chainKey.String()),
		limiter: ratelimit.NewLimiter(20, 40, chainKey.String()),
	}
}

func (a *Adapter) Chain() model.Chain {
	return a.chain
}

// ValidateAddress requires the canonical 0x + 40 hex digit form.
func (a *Adapter) ValidateAddress(address string) bool {
	return addressRe.MatchString(address)
}

// FetchBalance calls eth_getBalance and normalizes the hex result to a wei
// decimal string.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	if !a.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %q is not 0x + 40 hex chars", chain.ErrInvalidAddress, address)
	}

	hexBalance, err := a.client(node).GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	balance, err := numeric.HexToDecimalString(hexBalance)
	if err != nil {
		return nil, fmt.Errorf("decode balance %q: %w", hexBalance, err)
	}

	raw, _ := json.Marshal(map[string]string{"result": hexBalance})
	return &model.BalanceResult{
		Chain:    a.chain,
		Balance:  model.StringPtr(balance),
		Unit:     a.chain.Unit(),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// Broadcast submits a signed transaction. The payload must be hex, with or
// without the 0x prefix.
func (a *Adapter) Broadcast(ctx context.Context, node *nodedir.NodeDescriptor, payload string) (*model.BroadcastResult, error) {
	signed, err := NormalizeHexPayload(payload)
	if err != nil {
		return nil, err
	}

	txHash, err := a.client(node).SendRawTransaction(ctx, signed)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]string{"result": txHash})
	return &model.BroadcastResult{
		Chain:    a.chain,
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
		rpc.WithChainLabel(a.chain.String()),
	}
	if node.Auth.Username != "" || node.Auth.Password != "" {
		opts = append(opts, rpc.WithBasicAuth(node.Auth.Username, node.Auth.Password))
	}
	return rpc.NewClient(node.Endpoint.HTTPS, a.logger, opts...)
}

// NormalizeHexPayload validates a hex-encoded transaction payload and returns
// it 0x-prefixed. Shared by the Tron adapter, which uses the same wire shape.
func NormalizeHexPayload(payload string) (string, error) {
	s := strings.TrimSpace(payload)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" || len(s)%2 != 0 {
		return "", fmt.Errorf("%w: hex payload must be non-empty with even length", chain.ErrInvalidPayload)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("%w: non-hex character in payload", chain.ErrInvalidPayload)
		}
	}
	return "0x" + strings.ToLower(s), nil
}
