// Package gateway is the aggregation orchestrator: it owns the chain->adapter
// registry, node resolution, and the Bitcoin fallback cascade, and exposes
// the private HTTP API on top.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/btc"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/fallback"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/tracing"
)

// ErrUnknownProvider reports a provider override naming no configured
// fallback provider.
var ErrUnknownProvider = errors.New("unknown provider")

var chainKeyRe = regexp.MustCompile(`(?i)^[a-z0-9-]+$`)

// BalanceOutcome is a balance result plus the response annotations the HTTP
// layer turns into headers.
type BalanceOutcome struct {
	Result *model.BalanceResult

	// FallbackReason is set when an alternate provider answered because
	// the node path failed.
	FallbackReason string

	// OverrideIgnored is set when the caller asked for a provider
	// override on a chain that does not support one.
	OverrideIgnored bool
}

// NodeSource resolves usable nodes. *nodedir.Directory satisfies it.
type NodeSource interface {
	ListNodes(ctx context.Context) ([]nodedir.NodeDescriptor, error)
	SelectNodeForChain(nodes []nodedir.NodeDescriptor, chain model.Chain) *nodedir.NodeDescriptor
}

// Service orchestrates balance and broadcast requests across chain adapters.
type Service struct {
	adapters  map[model.Chain]chain.Adapter
	directory NodeSource
	fallbacks []fallback.Provider
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewService builds the orchestrator. fallbacks is the ordered Bitcoin
// cascade; it may be empty when no explorer credentials are configured.
func NewService(adapters []chain.Adapter, directory NodeSource, fallbacks []fallback.Provider, logger *slog.Logger) *Service {
	byChain := make(map[model.Chain]chain.Adapter, len(adapters))
	for _, a := range adapters {
		byChain[a.Chain()] = a
	}
	return &Service{
		adapters:  byChain,
		directory: directory,
		fallbacks: fallbacks,
		logger:    logger.With("component", "gateway"),
		tracer:    tracing.Tracer("gateway"),
	}
}

// Balance resolves the chain and node and fetches the address balance. For
// Bitcoin, node-path failures cascade through the configured alternate
// providers; providerOverride skips the node path entirely.
func (s *Service) Balance(ctx context.Context, chainKey, address, providerOverride string) (*BalanceOutcome, error) {
	adapter, chainID, err := s.resolve(chainKey)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "gateway.balance",
		trace.WithAttributes(attribute.String("chain", chainID.String())))
	defer span.End()

	if v, ok := adapter.(chain.AddressValidator); ok && !v.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %q for chain %s", chain.ErrInvalidAddress, address, chainID)
	}

	outcome := &BalanceOutcome{}

	if providerOverride != "" {
		if chainID != model.ChainBitcoin {
			outcome.OverrideIgnored = true
		} else {
			provider := s.provider(providerOverride)
			if provider == nil {
				return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerOverride)
			}
			result, err := provider.FetchBalance(ctx, address)
			if err != nil {
				return nil, err
			}
			outcome.Result = result
			return outcome, nil
		}
	}

	node, err := s.node(ctx, chainID)
	if err != nil {
		if chainID == model.ChainBitcoin {
			return s.cascade(ctx, address, outcome, err)
		}
		return nil, err
	}

	result, err := adapter.FetchBalance(ctx, node, address)
	if err != nil {
		s.logger.Warn("balance fetch failed",
			"chain", chainID, "node", node.ID, "error", err)
		if chainID == model.ChainBitcoin {
			return s.cascade(ctx, address, outcome, err)
		}
		return nil, err
	}

	outcome.Result = result
	return outcome, nil
}

// Broadcast submits a signed transaction on the chain. There is no fallback
// cascade: a transaction is submitted at most once.
func (s *Service) Broadcast(ctx context.Context, chainKey, payload string) (*model.BroadcastResult, error) {
	adapter, chainID, err := s.resolve(chainKey)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	broadcaster, ok := adapter.(chain.Broadcaster)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBroadcastUnsupported, chainID)
	}

	ctx, span := s.tracer.Start(ctx, "gateway.broadcast",
		trace.WithAttributes(attribute.String("chain", chainID.String())))
	defer span.End()

	node, err := s.node(ctx, chainID)
	if err != nil {
		return nil, err
	}

	result, err := broadcaster.Broadcast(ctx, node, payload)
	if err != nil {
		s.logger.Warn("broadcast failed",
			"chain", chainID, "node", node.ID, "error", err)
		return nil, err
	}
	return result, nil
}

func (s *Service) resolve(chainKey string) (chain.Adapter, model.Chain, error) {
	if !chainKeyRe.MatchString(chainKey) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidChainKey, chainKey)
	}
	chainID, ok := model.ResolveChain(chainKey)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownChain, chainKey)
	}
	adapter, ok := s.adapters[chainID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownChain, chainKey)
	}
	return adapter, chainID, nil
}

func (s *Service) node(ctx context.Context, chainID model.Chain) (*nodedir.NodeDescriptor, error) {
	nodes, err := s.directory.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	node := s.directory.SelectNodeForChain(nodes, chainID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoNode, chainID)
	}
	return node, nil
}

// cascade tries each alternate provider in order after primary failed. The
// first success wins; when all fail the primary error is surfaced.
func (s *Service) cascade(ctx context.Context, address string, outcome *BalanceOutcome, primary error) (*BalanceOutcome, error) {
	reason := fallbackReason(primary)
	for _, provider := range s.fallbacks {
		result, err := provider.FetchBalance(ctx, address)
		if err != nil {
			s.logger.Warn("fallback provider failed",
				"provider", provider.Name(), "error", err)
			continue
		}
		outcome.Result = result
		outcome.FallbackReason = reason
		return outcome, nil
	}
	return nil, primary
}

// fallbackReason gives the x-fallback-reason header value for a primary
// failure.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, btc.ErrScanUnavailable):
		return "scan-unavailable"
	case errors.Is(err, btc.ErrScanInProgress):
		return "scan-in-progress"
	case errors.Is(err, btc.ErrScanFailed):
		return "scan-failed"
	case errors.Is(err, nodedir.ErrUnavailable):
		return "node-directory-unavailable"
	case errors.Is(err, ErrNoNode):
		return "no-node"
	default:
		return "node-error"
	}
}

func (s *Service) provider(name string) fallback.Provider {
	for _, p := range s.fallbacks {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
