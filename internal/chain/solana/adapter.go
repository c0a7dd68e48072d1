// Package solana implements the balance/broadcast contract for Solana.
package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
	"github.com/ecency/vision-api/internal/chain/solana/rpc"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
)

type Adapter struct {
	logger  *slog.Logger
	limiter *ratelimit.Limiter
}

func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{
		logger:  logger.With("component", "solana-adapter"),
		limiter: ratelimit.NewLimiter(20, 40, model.ChainSolana.String()),
	}
}

func (a *Adapter) Chain() model.Chain {
	return model.ChainSolana
}

// ValidateAddress checks base58 shape: 32-44 chars from the base58 alphabet.
// Full curve validation belongs to the node.
func (a *Adapter) ValidateAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	for i := 0; i < len(address); i++ {
		c := address[i]
		switch {
		case c >= '1' && c <= '9', c >= 'A' && c <= 'H', c >= 'J' && c <= 'N',
			c >= 'P' && c <= 'Z', c >= 'a' && c <= 'k', c >= 'm' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// FetchBalance calls getBalance at finalized commitment and reports lamports.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	if !a.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %q is not a solana address", chain.ErrInvalidAddress, address)
	}

	balance, err := a.client(node).GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(balance)
	return &model.BalanceResult{
		Chain:    model.ChainSolana,
		Balance:  model.StringPtr(strconv.FormatInt(balance.Value, 10)),
		Unit:     model.ChainSolana.Unit(),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// Broadcast submits a base64-encoded signed transaction.
func (a *Adapter) Broadcast(ctx context.Context, node *nodedir.NodeDescriptor, payload string) (*model.BroadcastResult, error) {
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil || payload == "" {
		return nil, fmt.Errorf("%w: payload is not valid base64", chain.ErrInvalidPayload)
	}

	signature, err := a.client(node).SendTransaction(ctx, payload)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]string{"result": signature})
	return &model.BroadcastResult{
		Chain:    model.ChainSolana,
		TxID:     model.StringPtr(signature),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

func (a *Adapter) client(node *nodedir.NodeDescriptor) *rpc.Client {
	c := rpc.NewClient(node.Endpoint.HTTPS, a.logger)
	c.SetRateLimiter(a.limiter)
	return c
}
