package fallback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/numeric"
)

// DefaultChainzURL is the chainz.cryptoid.info explorer API base.
const DefaultChainzURL = "https://chainz.cryptoid.info"

const chainzTimeout = 10 * time.Second

// Chainz queries the chainz.cryptoid.info getbalance endpoint. The response
// body is a bare decimal number of whole coins, occasionally in scientific
// notation for dust balances.
type Chainz struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ChainzOption customizes a Chainz provider.
type ChainzOption func(*Chainz)

// WithChainzURL overrides the explorer base URL.
func WithChainzURL(baseURL string) ChainzOption {
	return func(c *Chainz) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithChainzHTTPClient overrides the HTTP client.
func WithChainzHTTPClient(client *http.Client) ChainzOption {
	return func(c *Chainz) {
		c.httpClient = client
	}
}

// NewChainz creates a chainz provider using apiKey for request signing.
func NewChainz(apiKey string, logger *slog.Logger, opts ...ChainzOption) *Chainz {
	c := &Chainz{
		baseURL:    DefaultChainzURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: chainzTimeout},
		logger:     logger.With("provider", "chainz"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chainz) Name() string {
	return "chainz"
}

func (c *Chainz) FetchBalance(ctx context.Context, address string) (*model.BalanceResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("chainz: missing API key")
	}

	query := url.Values{}
	query.Set("q", "getbalance")
	query.Set("a", address)
	query.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/btc/api.dws?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chainz request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &chain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	text := strings.TrimSpace(string(body))
	plain, err := numeric.NormalizeScientificOrPlain(text)
	if err != nil {
		c.logger.Warn("unparseable balance body", "body", text)
		return nil, fmt.Errorf("parse balance %q: %w", text, err)
	}
	satoshi, err := numeric.DecimalToScaledInteger(plain, 8)
	if err != nil {
		return nil, fmt.Errorf("scale balance %q: %w", plain, err)
	}

	return &model.BalanceResult{
		Chain:    model.ChainBitcoin,
		Balance:  model.StringPtr(satoshi),
		Unit:     model.ChainBitcoin.Unit(),
		Raw:      []byte(fmt.Sprintf("{\"balance\":%q}", text)),
		Provider: c.Name(),
	}, nil
}
