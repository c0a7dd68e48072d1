package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/domain/model"
)

const (
	// DefaultBlockstreamURL is the Esplora API base for enterprise access.
	DefaultBlockstreamURL = "https://enterprise.blockstream.info/api"

	// DefaultBlockstreamTokenURL is the OAuth token endpoint for the
	// client-credentials grant.
	DefaultBlockstreamTokenURL = "https://login.blockstream.com/realms/blockstream-public/protocol/openid-connect/token"

	blockstreamTimeout = 10 * time.Second

	// tokenExpirySlack renews tokens this long before they actually expire.
	tokenExpirySlack = 30 * time.Second
)

type blockstreamToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type addressStats struct {
	ChainStats   txoStats `json:"chain_stats"`
	MempoolStats txoStats `json:"mempool_stats"`
}

type txoStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
}

// Blockstream queries the Blockstream Esplora address endpoint, authenticating
// with an OAuth client-credentials token that is cached until shortly before
// expiry.
type Blockstream struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
	nowFn        func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// BlockstreamOption customizes a Blockstream provider.
type BlockstreamOption func(*Blockstream)

// WithBlockstreamURL overrides the Esplora API base URL.
func WithBlockstreamURL(baseURL string) BlockstreamOption {
	return func(b *Blockstream) {
		b.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithBlockstreamTokenURL overrides the OAuth token endpoint.
func WithBlockstreamTokenURL(tokenURL string) BlockstreamOption {
	return func(b *Blockstream) {
		b.tokenURL = tokenURL
	}
}

// WithBlockstreamHTTPClient overrides the HTTP client.
func WithBlockstreamHTTPClient(client *http.Client) BlockstreamOption {
	return func(b *Blockstream) {
		b.httpClient = client
	}
}

// NewBlockstream creates a Blockstream provider with the given OAuth client
// credentials.
func NewBlockstream(clientID, clientSecret string, logger *slog.Logger, opts ...BlockstreamOption) *Blockstream {
	b := &Blockstream{
		baseURL:      DefaultBlockstreamURL,
		tokenURL:     DefaultBlockstreamTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: blockstreamTimeout},
		logger:       logger.With("provider", "blockstream"),
		nowFn:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Blockstream) Name() string {
	return "blockstream"
}

func (b *Blockstream) FetchBalance(ctx context.Context, address string) (*model.BalanceResult, error) {
	token, err := b.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/address/%s", b.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blockstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked server side. Drop the cache so the
		// next attempt re-authenticates.
		b.mu.Lock()
		b.accessToken = ""
		b.mu.Unlock()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &chain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var stats addressStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("decode address stats: %w", err)
	}

	satoshi := stats.ChainStats.FundedTxoSum - stats.ChainStats.SpentTxoSum
	return &model.BalanceResult{
		Chain:    model.ChainBitcoin,
		Balance:  model.StringPtr(strconv.FormatInt(satoshi, 10)),
		Unit:     model.ChainBitcoin.Unit(),
		Raw:      body,
		Provider: b.Name(),
	}, nil
}

// token returns a valid access token, reusing the cached one when it has not
// expired yet.
func (b *Blockstream) token(ctx context.Context) (string, error) {
	if b.clientID == "" || b.clientSecret == "" {
		return "", fmt.Errorf("blockstream: missing client credentials")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" && b.nowFn().Before(b.tokenExpiry) {
		return b.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", b.clientID)
	form.Set("client_secret", b.clientSecret)
	form.Set("scope", "openid")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &chain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var token blockstreamToken
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	b.accessToken = token.AccessToken
	b.tokenExpiry = b.nowFn().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack)
	b.logger.Debug("refreshed access token", "expires_in", token.ExpiresIn)
	return b.accessToken, nil
}
