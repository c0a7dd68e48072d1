package bnb

import (
	"log/slog"

	"github.com/ecency/vision-api/internal/chain/evm"
	"github.com/ecency/vision-api/internal/domain/model"
)

// NewAdapter creates an EVM adapter configured for BNB Smart Chain.
func NewAdapter(logger *slog.Logger) *evm.Adapter {
	return evm.NewAdapterWithChain(model.ChainBNB, logger)
}
