package gateway

import (
	"errors"
	"net/http"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

var (
	// ErrUnknownChain reports a chain key that resolves to no adapter.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrInvalidChainKey reports a chain path segment that is not even
	// shaped like a chain key.
	ErrInvalidChainKey = errors.New("invalid chain key")

	// ErrNoNode reports that no running node matched the chain.
	ErrNoNode = errors.New("no node available for chain")

	// ErrBroadcastUnsupported reports a broadcast request for a chain
	// whose adapter cannot submit transactions.
	ErrBroadcastUnsupported = errors.New("broadcast not supported for chain")

	// ErrEmptyPayload reports a broadcast body with no transaction in it.
	ErrEmptyPayload = errors.New("empty broadcast payload")
)

// HTTPStatus maps an orchestrator error to the client-facing status code.
// Upstream HTTP errors pass their status through untouched.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownChain),
		errors.Is(err, ErrInvalidChainKey),
		errors.Is(err, ErrBroadcastUnsupported),
		errors.Is(err, ErrEmptyPayload),
		errors.Is(err, ErrUnknownProvider),
		errors.Is(err, chain.ErrInvalidAddress),
		errors.Is(err, chain.ErrInvalidPayload),
		errors.Is(err, numeric.ErrMalformedNumber),
		errors.Is(err, numeric.ErrPrecisionExceeded),
		errors.Is(err, numeric.ErrInvalidNumericFormat):
		return http.StatusBadRequest
	case errors.Is(err, nodedir.ErrUnavailable), errors.Is(err, ErrNoNode):
		return http.StatusBadGateway
	}
	if status, ok := chain.UpstreamStatus(err); ok {
		return status
	}
	return http.StatusBadGateway
}
