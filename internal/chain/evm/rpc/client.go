// Package rpc is a minimal Ethereum-dialect JSON-RPC client. It serves every
// EVM-shaped endpoint the gateway talks to, including Tron's EVM-compatible
// RPC surface.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/ratelimit"
)

// Client issues JSON-RPC 2.0 calls against a single endpoint.
type Client struct {
	httpClient *http.Client
	rpcURL     string
	basicUser  string
	basicPass  string
	chainLabel string
	requestID  atomic.Int64
	logger     *slog.Logger
	limiter    *ratelimit.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth attaches basic-auth credentials to every request.
func WithBasicAuth(user, pass string) Option {
	return func(c *Client) {
		c.basicUser = user
		c.basicPass = pass
	}
}

// WithTimeout overrides the default 10s HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimiter throttles calls through the given limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithChainLabel sets the chain label used in RPC metrics.
func WithChainLabel(label string) Option {
	return func(c *Client) { c.chainLabel = label }
}

// NewClient creates a client for rpcURL.
func NewClient(rpcURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rpcURL:     rpcURL,
		chainLabel: "evm",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call issues a single JSON-RPC request and returns the raw result. Non-200
// responses surface as *chain.UpstreamError so callers can pass the upstream
// status through.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
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
	if c.basicUser != "" || c.basicPass != "" {
		httpReq.SetBasicAuth(c.basicUser, c.basicPass)
	}

	resp, err := c.httpClient.Do(httpReq)
	ratelimit.RecordCall(c.chainLabel, method, err)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
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
