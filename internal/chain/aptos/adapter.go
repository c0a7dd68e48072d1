// Package aptos implements the balance contract for Aptos over its REST API.
// The CoinStore resource is the cheap path; accounts that have registered
// the coin through a different mechanism need the view-function path; an
// account with neither simply holds zero.
package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/numeric"
)

const aptosCoinStore = "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>"

type Adapter struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		logger:     logger.With("component", "aptos-adapter"),
	}
}

func (a *Adapter) Chain() model.Chain {
	return model.ChainAptos
}

func (a *Adapter) ValidateAddress(address string) bool {
	_, err := normalizeAddress(address)
	return err == nil
}

// FetchBalance reads the CoinStore resource; a 404 falls through to the
// coin-balance view function; a second 404 means the account holds zero.
func (a *Adapter) FetchBalance(ctx context.Context, node *nodedir.NodeDescriptor, address string) (*model.BalanceResult, error) {
	addr, err := normalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an aptos address", chain.ErrInvalidAddress, address)
	}

	base := strings.TrimRight(node.Endpoint.AptosREST, "/")

	body, status, err := a.get(ctx, fmt.Sprintf("%s/v1/accounts/%s/resource/%s", base, addr, aptosCoinStore))
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		balance, err := coinStoreValue(body)
		if err != nil {
			return nil, err
		}
		return a.result(balance, body, node), nil
	}
	if status != http.StatusNotFound {
		return nil, &chain.UpstreamError{Status: status, Body: string(body)}
	}

	body, status, err = a.view(ctx, base, addr)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		balance, err := viewValue(body)
		if err != nil {
			return nil, err
		}
		return a.result(balance, body, node), nil
	}
	if status != http.StatusNotFound {
		return nil, &chain.UpstreamError{Status: status, Body: string(body)}
	}

	// No CoinStore and no view result: the account has never held the coin.
	return a.result("0", json.RawMessage(`{"balance":"0","source":"default"}`), node), nil
}

func (a *Adapter) result(balance string, raw json.RawMessage, node *nodedir.NodeDescriptor) *model.BalanceResult {
	return &model.BalanceResult{
		Chain:    model.ChainAptos,
		Balance:  model.StringPtr(balance),
		Unit:     model.ChainAptos.Unit(),
		Raw:      raw,
		NodeID:   node.ID,
		Provider: node.Network,
	}
}

func (a *Adapter) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	return a.send(req)
}

func (a *Adapter) view(ctx context.Context, base, addr string) ([]byte, int, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"function":       "0x1::coin::balance",
		"type_arguments": []string{"0x1::aptos_coin::AptosCoin"},
		"arguments":      []string{addr},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/view", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.send(req)
}

func (a *Adapter) send(req *http.Request) ([]byte, int, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// coinStoreValue extracts data.coin.value from a CoinStore resource payload.
func coinStoreValue(body []byte) (string, error) {
	var resource struct {
		Data struct {
			Coin struct {
				Value string `json:"value"`
			} `json:"coin"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resource); err != nil {
		return "", fmt.Errorf("unmarshal coin store: %w", err)
	}
	return octas(resource.Data.Coin.Value)
}

// viewValue extracts the single element the balance view function returns.
func viewValue(body []byte) (string, error) {
	var values []string
	if err := json.Unmarshal(body, &values); err != nil || len(values) == 0 {
		return "", fmt.Errorf("unmarshal view result: unexpected shape")
	}
	return octas(values[0])
}

func octas(value string) (string, error) {
	balance, err := numeric.NormalizeScientificOrPlain(value)
	if err != nil {
		return "", fmt.Errorf("parse octa value %q: %w", value, err)
	}
	// Octas are base units, so a fractional value is a malformed response
	// rather than a balance.
	balance, err = numeric.DecimalToScaledInteger(balance, 0)
	if err != nil {
		return "", fmt.Errorf("parse octa value %q: %w", value, err)
	}
	return balance, nil
}
