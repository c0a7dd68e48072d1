package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetBalance returns the address's balance at the latest block as the raw hex
// quantity string the node reports (e.g. "0xde0b6b3a7640000").
func (c *Client) GetBalance(ctx context.Context, address string) (string, error) {
	result, err := c.Call(ctx, "eth_getBalance", []interface{}{address, "latest"})
	if err != nil {
		return "", fmt.Errorf("eth_getBalance: %w", err)
	}

	var hexBalance string
	if err := json.Unmarshal(result, &hexBalance); err != nil {
		return "", fmt.Errorf("unmarshal balance: %w", err)
	}
	return hexBalance, nil
}

// SendRawTransaction submits a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, signedHex string) (string, error) {
	result, err := c.Call(ctx, "eth_sendRawTransaction", []interface{}{signedHex})
	if err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction: %w", err)
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return "", fmt.Errorf("unmarshal tx hash: %w", err)
	}
	return txHash, nil
}
