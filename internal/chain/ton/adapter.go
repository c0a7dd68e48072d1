// Package ton implements the balance contract for TON. TON providers do not
// agree on an endpoint shape: the same logical getAddressBalance call may be
// JSON-RPC at /jsonrpc, JSON-RPC at the root, a REST GET, or a method query
// parameter, and the response envelope varies just as much. The adapter
// probes a fixed list of shapes in order and treats the first parseable
// answer as authoritative. This is a best-effort heuristic, not a protocol.
package ton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
)

// DefaultExplorerURL is the independent public explorer used as the last
// resort when every node endpoint shape fails.
const DefaultExplorerURL = "https://tonapi.io"

type Adapter struct {
	httpClient  *http.Client
	explorerURL string
	logger      *slog.Logger
}

type Option func(*Adapter)

// WithExplorerURL overrides the last-resort explorer endpoint.
func WithExplorerURL(u string) Option {
	return func(a *Adapter) { a.explorerURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

func NewAdapter(logger *slog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		httpClient:  &http.Client{Timeout: 8 * time.Second},
		explorerURL: DefaultExplorerURL,
		logger:      logger.With("component", "ton-adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Chain() model.Chain {
	return model.ChainTON
}

// ValidateAddress accepts raw (workchain:hex) and friendly base64url forms.
func (a *Adapter) ValidateAddress(address string) bool {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return false
	}
	if colon := strings.IndexByte(addr, ':'); colon >= 0 {
		wc, body := addr[:colon], addr[colon+1:]
		if wc != "0" && wc != "-1" {
			return false
		}
		return len(body) == 64 && isLowerHex(strings.ToLower(body))
	}
	if len(addr) != 48 {
		return false
	}
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}

// FetchBalance probes the node's v3 endpoint, then v2, then the public
// explorer. Each endpoint is tried with every known request shape before
// moving on.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	if !a.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %q is not a ton address", chain.ErrInvalidAddress, address)
	}

	var endpoints []string
	if node != nil {
		for _, ep := range []string{node.Endpoint.TONV3, node.Endpoint.TONV2} {
			if ep != "" {
				endpoints = append(endpoints, strings.TrimRight(ep, "/"))
			}
		}
	}

	var lastErr error
	for _, endpoint := range endpoints {
		for _, attempt := range a.nodeAttempts(endpoint, address) {
			payload, err := attempt.do(ctx)
			if err != nil {
				a.logger.Debug("ton probe failed", "shape", attempt.label, "error", err)
				lastErr = err
				continue
			}
			balance, err := extractBalance(payload)
			if err != nil {
				a.logger.Debug("ton payload unusable", "shape", attempt.label, "error", err)
				lastErr = err
				continue
			}
			return a.result(balance, payload, node), nil
		}
	}

	// Independent public explorer, last resort.
	payload, err := a.getJSON(ctx, a.explorerURL+"/v2/accounts/"+url.PathEscape(address))
	if err != nil {
		if lastErr != nil {
			return nil, fmt.Errorf("all ton endpoints failed: %w (explorer: %s)", lastErr, err)
		}
		return nil, err
	}
	balance, err := extractBalance(payload)
	if err != nil {
		return nil, fmt.Errorf("explorer payload: %w", err)
	}

	res := a.result(balance, payload, nil)
	res.Provider = "tonapi"
	return res, nil
}

func (a *Adapter) result(balance string, payload []byte, node *nodedir.NodeDescriptor) *model.BalanceResult {
	res := &model.BalanceResult{
		Chain:    model.ChainTON,
		Balance:  model.StringPtr(balance),
		Unit:     model.ChainTON.Unit(),
		Raw:      json.RawMessage(payload),
		Provider: "ton-node",
	}
	if node != nil {
		res.NodeID = node.ID
		res.Provider = node.Network
	}
	return res
}

type probeAttempt struct {
	label string
	do    func(ctx context.Context) ([]byte, error)
}

// nodeAttempts enumerates the request shapes tried against one endpoint, in
// preference order.
func (a *Adapter) nodeAttempts(endpoint, address string) []probeAttempt {
	rpcBody := func() []byte {
		b, _ := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "getAddressBalance",
			"params":  map[string]string{"address": address},
		})
		return b
	}
	query := url.Values{"address": {address}}.Encode()

	return []probeAttempt{
		{"jsonrpc /jsonrpc", func(ctx context.Context) ([]byte, error) {
			return a.postJSON(ctx, endpoint+"/jsonrpc", rpcBody())
		}},
		{"jsonrpc root", func(ctx context.Context) ([]byte, error) {
			return a.postJSON(ctx, endpoint, rpcBody())
		}},
		{"rest GET", func(ctx context.Context) ([]byte, error) {
			return a.getJSON(ctx, endpoint+"/getAddressBalance?"+query)
		}},
		{"method query", func(ctx context.Context) ([]byte, error) {
			return a.getJSON(ctx, endpoint+"?method=getAddressBalance&"+query)
		}},
	}
}

func (a *Adapter) postJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.send(req)
}

func (a *Adapter) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return a.send(req)
}

func (a *Adapter) send(req *http.Request) ([]byte, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &chain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
