// Package fallback holds the alternate Bitcoin balance providers the
// orchestrator cascades through when the node-based UTXO scan fails. Each
// provider has the same FetchBalance signature, so the cascade is a list to
// iterate, not nested error handling.
package fallback

import (
	"context"
	"fmt"

	"github.com/ecency/vision-api/internal/circuitbreaker"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/metrics"
)

// Provider is one alternate balance source.
type Provider interface {
	// Name identifies the provider in results, headers, and metrics.
	Name() string

	// FetchBalance returns the address's balance in satoshi.
	FetchBalance(ctx context.Context, address string) (*model.BalanceResult, error)
}

// Guarded wraps a provider with a circuit breaker so a dead explorer is not
// hammered by every request.
type Guarded struct {
	provider Provider
	breaker  *circuitbreaker.Breaker
}

// Guard wraps provider with a fresh breaker.
func Guard(provider Provider, breaker *circuitbreaker.Breaker) *Guarded {
	return &Guarded{provider: provider, breaker: breaker}
}

func (g *Guarded) Name() string {
	return g.provider.Name()
}

func (g *Guarded) FetchBalance(ctx context.Context, address string) (*model.BalanceResult, error) {
	if err := g.breaker.Allow(); err != nil {
		metrics.FallbackAttemptsTotal.WithLabelValues(g.Name(), "circuit_open").Inc()
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}

	result, err := g.provider.FetchBalance(ctx, address)
	if err != nil {
		g.breaker.RecordFailure()
		metrics.FallbackAttemptsTotal.WithLabelValues(g.Name(), "error").Inc()
		return nil, err
	}
	g.breaker.RecordSuccess()
	metrics.FallbackAttemptsTotal.WithLabelValues(g.Name(), "ok").Inc()
	return result, nil
}
