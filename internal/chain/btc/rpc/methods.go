package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetBestBlockHash returns the chain tip hash. Cheap; used as the scan-cache
// invalidation key.
func (c *Client) GetBestBlockHash(ctx context.Context) (string, error) {
	result, err := c.call(ctx, "getbestblockhash", []interface{}{})
	if err != nil {
		return "", fmt.Errorf("getbestblockhash: %w", err)
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", fmt.Errorf("unmarshal best block hash: %w", err)
	}
	return hash, nil
}

// ScanTxOutSet runs a full UTXO-set scan for the address and returns the
// aggregate result. Expensive; callers must go through the scan cache.
func (c *Client) ScanTxOutSet(ctx context.Context, address string) (*ScanResult, error) {
	descriptors := []interface{}{
		map[string]string{"desc": fmt.Sprintf("addr(%s)", address)},
	}
	result, err := c.call(ctx, "scantxoutset", []interface{}{"start", descriptors})
	if err != nil {
		return nil, fmt.Errorf("scantxoutset(%s): %w", address, err)
	}

	var scan ScanResult
	if err := json.Unmarshal(result, &scan); err != nil {
		return nil, fmt.Errorf("unmarshal scan result: %w", err)
	}
	return &scan, nil
}

// SendRawTransaction submits a hex-encoded signed transaction and returns
// its txid.
func (c *Client) SendRawTransaction(ctx context.Context, signedHex string) (string, error) {
	result, err := c.call(ctx, "sendrawtransaction", []interface{}{signedHex})
	if err != nil {
		return "", fmt.Errorf("sendrawtransaction: %w", err)
	}

	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", fmt.Errorf("unmarshal txid: %w", err)
	}
	return txid, nil
}
