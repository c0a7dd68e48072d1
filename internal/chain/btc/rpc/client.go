// Package rpc is a Bitcoin Core JSON-RPC client. The providers behind the
// node directory authenticate Bitcoin nodes with a key segment embedded in
// the URL path, not headers; NewClient appends it.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
)

// DefaultTimeout leaves room for a full-UTXO-set scan, which is far slower
// than any other call the gateway makes.
const DefaultTimeout = 15 * time.Second

type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	logger     *slog.Logger
	limiter    *ratelimit.Limiter
}

// NewClient creates a client for rpcURL. A non-empty pathKey is appended as a
// path segment: "https://host" + "/" + pathKey.
func NewClient(rpcURL, pathKey string, logger *slog.Logger) *Client {
	url := strings.TrimRight(rpcURL, "/")
	if pathKey != "" {
		url += "/" + pathKey
	}
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		rpcURL:     url,
		logger:     logger,
	}
}

// SetRateLimiter sets the RPC rate limiter for this client.
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	id := int(c.requestID.Add(1))
	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	ratelimit.RecordCall("btc", method, err)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Bitcoin Core reports RPC errors with non-200 statuses and a JSON
		// body; prefer the structured error when it parses.
		var rpcResp Response
		if json.Unmarshal(respBody, &rpcResp) == nil && rpcResp.Error != nil {
			return nil, rpcResp.Error
		}
		return nil, &chain.UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
