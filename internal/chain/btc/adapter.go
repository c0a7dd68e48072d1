// Package btc implements the balance/broadcast contract for Bitcoin. Balance
// is computed with a full UTXO-set scan, which is the least reliable call the
// gateway makes: providers disable it, it can time out, and shared nodes
// reject concurrent scans. Errors are classified so the orchestrator can
// decide fallback eligibility.
package btc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/btc/rpc"
	"github.com/ecency/vision-api/internal/chain/btc/scancache"
	"github.com/ecency/vision-api/internal/chain/evm"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

var (
	// ErrScanUnavailable: the node does not offer scantxoutset at all.
	ErrScanUnavailable = errors.New("utxo scan unavailable")

	// ErrScanInProgress: the node rejected the scan because another one is
	// already running on it.
	ErrScanInProgress = errors.New("utxo scan already in progress")

	// ErrScanFailed: any other scan failure.
	ErrScanFailed = errors.New("utxo scan failed")
)

const scanCacheCapacity = 4096

type Adapter struct {
	cache   *scancache.Cache
	logger  *slog.Logger
	limiter *ratelimit.Limiter
}

func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{
		cache:   scancache.New(scanCacheCapacity),
		logger:  logger.With("component", "btc-adapter"),
		limiter: ratelimit.NewLimiter(4, 8, model.ChainBitcoin.String()),
	}
}

func (a *Adapter) Chain() model.Chain {
	return model.ChainBitcoin
}

// ValidateAddress accepts legacy base58 (1.../3...) and bech32 (bc1...)
// shapes. Checksum validation is left to the node's descriptor parser.
func (a *Adapter) ValidateAddress(address string) bool {
	if len(address) < 26 || len(address) > 90 {
		return false
	}
	lower := strings.ToLower(address)
	if strings.HasPrefix(lower, "bc1") || strings.HasPrefix(lower, "tb1") {
		return !strings.ContainsAny(lower[3:], "1bio")
	}
	return address[0] == '1' || address[0] == '3' ||
		address[0] == 'm' || address[0] == 'n' || address[0] == '2'
}

// FetchBalance resolves the current tip, answers from the tip-keyed cache
// when possible, and otherwise runs (or joins) a UTXO scan.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	if !a.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %q is not a bitcoin address", chain.ErrInvalidAddress, address)
	}

	client := a.client(node)

	tip, err := client.GetBestBlockHash(ctx)
	if err != nil {
		return nil, classifyScanError(err)
	}

	if entry, ok := a.cache.Lookup(address, tip); ok {
		raw, _ := json.Marshal(map[string]interface{}{
			"cached":      true,
			"tip":         entry.Tip,
			"observed_at": entry.ObservedAt.Format(time.RFC3339),
		})
		return &model.BalanceResult{
			Chain:    model.ChainBitcoin,
			Balance:  model.StringPtr(entry.Balance),
			Unit:     model.ChainBitcoin.Unit(),
			Raw:      raw,
			NodeID:   node.ID,
			Provider: node.Network,
		}, nil
	}

	entry, err := a.cache.Scan(ctx, address, tip, func() (string, json.RawMessage, error) {
		scan, err := client.ScanTxOutSet(ctx, address)
		if err != nil {
			return "", nil, classifyScanError(err)
		}
		if !scan.Success {
			return "", nil, fmt.Errorf("%w: node reported success=false", ErrScanFailed)
		}
		raw, _ := json.Marshal(scan)
		balance, err := satoshiAmount(scan.TotalAmount.String())
		return balance, raw, err
	})
	if err != nil {
		return nil, err
	}

	return &model.BalanceResult{
		Chain:    model.ChainBitcoin,
		Balance:  model.StringPtr(entry.Balance),
		Unit:     model.ChainBitcoin.Unit(),
		Raw:      entry.Raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// Broadcast submits a hex-encoded signed transaction. The 0x prefix the
// normalizer adds is stripped; Bitcoin Core wants bare hex.
func (a *Adapter) Broadcast(ctx context.Context, node *nodedir.NodeDescriptor, payload string) (*model.BroadcastResult, error) {
	signed, err := evm.NormalizeHexPayload(payload)
	if err != nil {
		return nil, err
	}

	txid, err := a.client(node).SendRawTransaction(ctx, strings.TrimPrefix(signed, "0x"))
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]string{"result": txid})
	return &model.BroadcastResult{
		Chain:    model.ChainBitcoin,
		TxID:     model.StringPtr(txid),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}, nil
}

// SetScanCacheClock exposes the cache clock for tests.
func (a *Adapter) SetScanCacheClock(now func() time.Time) {
	a.cache.SetClock(now)
}

func (a *Adapter) client(node *nodedir.NodeDescriptor) *rpc.Client {
	c := rpc.NewClient(node.Endpoint.HTTPS, node.Auth.APIKey, a.logger)
	c.SetRateLimiter(a.limiter)
	return c
}

// satoshiAmount converts the whole-BTC amount scantxoutset reports into a
// satoshi integer string. Bitcoin Core can emit scientific notation for dust
// amounts, so the value is normalized first.
func satoshiAmount(totalAmount string) (string, error) {
	plain, err := numeric.NormalizeScientificOrPlain(totalAmount)
	if err != nil {
		return "", fmt.Errorf("%w: unparseable total_amount %q", ErrScanFailed, totalAmount)
	}
	sats, err := numeric.DecimalToScaledInteger(plain, 8)
	if err != nil {
		return "", fmt.Errorf("%w: total_amount %q: %s", ErrScanFailed, totalAmount, err)
	}
	return sats, nil
}

// classifyScanError maps node errors onto the scan error taxonomy. All three
// classes drive the fallback cascade identically; the distinction is kept
// for diagnostics.
func classifyScanError(err error) error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "method not found") ||
		strings.Contains(lower, "disabled") ||
		strings.Contains(lower, "method is deprecated"):
		return fmt.Errorf("%w: %s", ErrScanUnavailable, err)
	case strings.Contains(lower, "scan already in progress") ||
		strings.Contains(lower, "already in progress"):
		return fmt.Errorf("%w: %s", ErrScanInProgress, err)
	default:
		return fmt.Errorf("%w: %s", ErrScanFailed, err)
	}
}

// IsScanError reports whether err belongs to the scan error taxonomy.
func IsScanError(err error) bool {
	return errors.Is(err, ErrScanUnavailable) ||
		errors.Is(err, ErrScanInProgress) ||
		errors.Is(err, ErrScanFailed)
}
