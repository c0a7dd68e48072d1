package model

import "strings"

type Chain string

const (
	ChainBitcoin  Chain = "btc"
	ChainEthereum Chain = "eth"
	ChainBNB      Chain = "bnb"
	ChainSolana   Chain = "sol"
	ChainTron     Chain = "tron"
	ChainTON      Chain = "ton"
	ChainAptos    Chain = "apt"
)

func (c Chain) String() string {
	return string(c)
}

// chainAliases maps the long-form chain keys accepted on the wire to their
// canonical short keys. Short keys map to themselves via ResolveChain.
var chainAliases = map[string]Chain{
	"bitcoin":  ChainBitcoin,
	"ethereum": ChainEthereum,
	"binance":  ChainBNB,
	"bsc":      ChainBNB,
	"solana":   ChainSolana,
	"trx":      ChainTron,
	"aptos":    ChainAptos,
}

var knownChains = map[Chain]bool{
	ChainBitcoin:  true,
	ChainEthereum: true,
	ChainBNB:      true,
	ChainSolana:   true,
	ChainTron:     true,
	ChainTON:      true,
	ChainAptos:    true,
}

// ResolveChain normalizes a request chain key (short key or alias, any case)
// to its canonical Chain. Returns false for unknown keys.
func ResolveChain(key string) (Chain, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := chainAliases[k]; ok {
		return alias, true
	}
	c := Chain(k)
	return c, knownChains[c]
}

// Unit returns the smallest-unit name for the chain's native asset.
func (c Chain) Unit() string {
	switch c {
	case ChainBitcoin:
		return "satoshi"
	case ChainEthereum, ChainBNB:
		return "wei"
	case ChainSolana:
		return "lamports"
	case ChainTron:
		return "sun"
	case ChainTON:
		return "nanotons"
	case ChainAptos:
		return "octas"
	default:
		return ""
	}
}
