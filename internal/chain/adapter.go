package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
)

var (
	// ErrInvalidAddress reports an address that fails the adapter's
	// chain-specific validation. Never retried; surfaced as a 4xx.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidPayload reports a broadcast payload that fails encoding
	// normalization (hex or base64 depending on the chain).
	ErrInvalidPayload = errors.New("invalid payload")
)

// Adapter abstracts chain-specific balance logic so the orchestrator operates
// chain-agnostically.
type Adapter interface {
	// Chain returns the canonical chain key (e.g. "btc", "eth").
	Chain() model.Chain

	// FetchBalance queries the node for the address's native balance and
	// returns it normalized to the chain's smallest unit.
	FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error)
}

// Broadcaster is implemented by adapters that can submit a signed
// transaction. Broadcast is fire-once: the orchestrator never retries it.
type Broadcaster interface {
	Broadcast(ctx context.Context, node *nodedir.NodeDescriptor, payload string) (*model.BroadcastResult, error)
}

// AddressValidator is implemented by adapters that can reject a malformed
// address before any network I/O.
type AddressValidator interface {
	ValidateAddress(address string) bool
}

// UpstreamError carries the HTTP status and body of a failed upstream call so
// the orchestrator can pass them through instead of re-wrapping generically.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// UpstreamStatus extracts the upstream HTTP status from err, if any.
func UpstreamStatus(err error) (int, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status, true
	}
	return 0, false
}
