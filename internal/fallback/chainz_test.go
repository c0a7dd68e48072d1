package fallback

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecency/vision-api/internal/chain"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testAddress = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

// ---------------------------------------------------------------------------
// TestChainz_FetchBalance
// ---------------------------------------------------------------------------

func TestChainz_FetchBalance(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"whole coins", "1.23456789", "123456789"},
		{"integer coins", "21", "2100000000"},
		{"zero", "0", "0"},
		{"dust in scientific notation", "2e-06", "200"},
		{"body with whitespace", "\n0.5\n", "50000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/btc/api.dws", r.URL.Path)
				q := r.URL.Query()
				assert.Equal(t, "getbalance", q.Get("q"))
				assert.Equal(t, testAddress, q.Get("a"))
				assert.Equal(t, "test-key", q.Get("key"))

				_, err := w.Write([]byte(tt.body))
				require.NoError(t, err)
			}))
			defer ts.Close()

			c := NewChainz("test-key", newTestLogger(), WithChainzURL(ts.URL))

			result, err := c.FetchBalance(context.Background(), testAddress)
			require.NoError(t, err)
			require.NotNil(t, result.Balance)
			assert.Equal(t, tt.want, *result.Balance)
			assert.Equal(t, "satoshi", result.Unit)
			assert.Equal(t, "chainz", result.Provider)
		})
	}
}

// ---------------------------------------------------------------------------
// TestChainz_Failures
// ---------------------------------------------------------------------------

func TestChainz_Failures(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		c := NewChainz("", newTestLogger())

		_, err := c.FetchBalance(context.Background(), testAddress)
		require.Error(t, err)
	})

	t.Run("non-200 becomes upstream error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("bad key"))
		}))
		defer ts.Close()

		c := NewChainz("test-key", newTestLogger(), WithChainzURL(ts.URL))

		_, err := c.FetchBalance(context.Background(), testAddress)
		require.Error(t, err)

		status, ok := chain.UpstreamStatus(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unparseable body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ERROR: over quota"))
		}))
		defer ts.Close()

		c := NewChainz("test-key", newTestLogger(), WithChainzURL(ts.URL))

		_, err := c.FetchBalance(context.Background(), testAddress)
		require.Error(t, err)
	})

	t.Run("sub-satoshi precision rejected", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("0.000000001"))
		}))
		defer ts.Close()

		c := NewChainz("test-key", newTestLogger(), WithChainzURL(ts.URL))

		_, err := c.FetchBalance(context.Background(), testAddress)
		require.Error(t, err)
	})
}
