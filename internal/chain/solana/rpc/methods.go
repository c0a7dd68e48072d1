package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetBalance returns the lamport balance at finalized commitment. The value
// must arrive as a JSON number; anything else fails the unmarshal.
func (c *Client) GetBalance(ctx context.Context, address string) (*BalanceResult, error) {
	params := []interface{}{
		address,
		map[string]string{"commitment": "finalized"},
	}
	result, err := c.call(ctx, "getBalance", params)
	if err != nil {
		return nil, fmt.Errorf("getBalance: %w", err)
	}

	var balance BalanceResult
	if err := json.Unmarshal(result, &balance); err != nil {
		return nil, fmt.Errorf("unmarshal balance: %w", err)
	}
	return &balance, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, signedBase64 string) (string, error) {
	params := []interface{}{
		signedBase64,
		map[string]string{"encoding": "base64"},
	}
	result, err := c.call(ctx, "sendTransaction", params)
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return "", fmt.Errorf("unmarshal signature: %w", err)
	}
	return signature, nil
}
