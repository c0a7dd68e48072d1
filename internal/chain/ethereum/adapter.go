package ethereum

import (
	"log/slog"

	"github.com/ecency/vision-api/internal/chain/evm"
	"github.com/ecency/vision-api/internal/domain/model"
)

// NewAdapter creates an EVM adapter configured for Ethereum mainnet.
func NewAdapter(logger *slog.Logger) *evm.Adapter {
	return evm.NewAdapterWithChain(model.ChainEthereum, logger)
}
