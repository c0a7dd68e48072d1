// Package nodedir maintains a fresh, filtered list of usable RPC nodes from
// the node provisioning service.
package nodedir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/metrics"
)

// ErrUnavailable reports that the provisioning service could not be reached
// or no credential is configured. Callers treat it as a soft failure eligible
// for fallback, not process-fatal.
var ErrUnavailable = errors.New("node directory unavailable")

// DefaultTTL is how long a fetched node list stays fresh.
const DefaultTTL = 5 * time.Hour

// Directory caches the provisioning service's node list. Safe for concurrent
// use; the cached slice is replaced wholesale under the write lock and never
// mutated in place.
type Directory struct {
	baseURL    string
	apiKey     string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	rules      []MatchRule

	mu        sync.RWMutex
	nodes     []NodeDescriptor
	fetchedAt time.Time

	nowFn func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) { d.ttl = ttl }
}

// WithRules overrides the chain match rules.
func WithRules(rules []MatchRule) Option {
	return func(d *Directory) { d.rules = rules }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Directory) { d.httpClient = c }
}

// New creates a Directory for the provisioning service at baseURL. apiKey may
// be empty; ListNodes then fails soft with ErrUnavailable.
func New(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Directory {
	d := &Directory{
		baseURL:    baseURL,
		apiKey:     apiKey,
		ttl:        DefaultTTL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "nodedir"),
		rules:      DefaultRules(),
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListNodes returns the cached node list if younger than the TTL; otherwise
// it refreshes from the provisioning service, keeping only running nodes.
func (d *Directory) ListNodes(ctx context.Context) ([]NodeDescriptor, error) {
	d.mu.RLock()
	if d.nodes != nil && d.nowFn().Sub(d.fetchedAt) < d.ttl {
		nodes := d.nodes
		d.mu.RUnlock()
		return nodes, nil
	}
	d.mu.RUnlock()

	if d.apiKey == "" {
		return nil, fmt.Errorf("%w: no provisioning credential configured", ErrUnavailable)
	}

	nodes, err := d.fetch(ctx)
	if err != nil {
		metrics.NodeDirectoryRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	metrics.NodeDirectoryRefreshes.WithLabelValues("ok").Inc()

	d.mu.Lock()
	d.nodes = nodes
	d.fetchedAt = d.nowFn()
	d.mu.Unlock()

	d.logger.Info("node list refreshed", "nodes", len(nodes))
	return nodes, nil
}

// SelectNodeForChain returns the first running node in list order that the
// chain's match rule accepts, or nil when no node qualifies. Returning nil is
// not an error; the caller decides fallback.
func (d *Directory) SelectNodeForChain(nodes []NodeDescriptor, chain model.Chain) *NodeDescriptor {
	for _, rule := range d.rules {
		if rule.Chain != chain {
			continue
		}
		for i := range nodes {
			if rule.matches(&nodes[i]) {
				return &nodes[i]
			}
		}
		return nil
	}
	return nil
}

func (d *Directory) fetch(ctx context.Context) ([]NodeDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/nodes", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listNodesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	running := make([]NodeDescriptor, 0, len(parsed.Nodes))
	for _, node := range parsed.Nodes {
		if node.Status == StatusRunning {
			running = append(running, node)
		}
	}
	return running, nil
}
