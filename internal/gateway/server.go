package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecency/vision-api/internal/domain/model"
	"github.com/ecency/vision-api/internal/metrics"
)

const (
	// defaultRequestTimeout bounds most balance and broadcast requests.
	defaultRequestTimeout = 12 * time.Second

	// btcBalanceTimeout is longer because a cold UTXO scan can take tens
	// of seconds on a shared node.
	btcBalanceTimeout = 45 * time.Second
)

// Server is the private HTTP API over the orchestrator.
type Server struct {
	service *Service
	logger  *slog.Logger
}

// NewServer wires the HTTP surface around svc.
func NewServer(svc *Service, logger *slog.Logger) *Server {
	return &Server{service: svc, logger: logger.With("component", "http")}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /private-api/balance/{chain}/{address}", s.handleBalance)
	mux.HandleFunc("POST /private-api/broadcast/{chain}", s.handleBroadcast)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.withRequestID(s.withMetrics(mux))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	chainKey := r.PathValue("chain")
	address := r.PathValue("address")
	providerOverride := r.URL.Query().Get("provider")

	timeout := defaultRequestTimeout
	if chainID, ok := model.ResolveChain(chainKey); ok && chainID == model.ChainBitcoin {
		timeout = btcBalanceTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	outcome, err := s.service.Balance(ctx, chainKey, address, providerOverride)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if outcome.Result.Provider != "" {
		w.Header().Set("x-provider", outcome.Result.Provider)
	}
	if outcome.FallbackReason != "" {
		w.Header().Set("x-fallback-reason", outcome.FallbackReason)
	}
	if outcome.OverrideIgnored {
		w.Header().Set("x-provider-override-ignored", "true")
	}
	s.writeJSON(w, http.StatusOK, outcome.Result)
}

type broadcastRequest struct {
	SignedPayload  string `json:"signedPayload"`
	RawTransaction string `json:"rawTransaction"`
	Payload        string `json:"payload"`
}

// payloadValue accepts any of the field spellings clients use.
func (b broadcastRequest) payloadValue() string {
	switch {
	case b.SignedPayload != "":
		return b.SignedPayload
	case b.RawTransaction != "":
		return b.RawTransaction
	default:
		return b.Payload
	}
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	chainKey := r.PathValue("chain")

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	result, err := s.service.Broadcast(ctx, chainKey, req.payloadValue())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result.Provider != "" {
		w.Header().Set("x-provider", result.Provider)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// withRequestID tags every request with an ID for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-request-id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("x-request-id", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequestDuration.
			WithLabelValues(routeLabel(r), strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

// routeLabel keeps the metric cardinality bounded by collapsing paths to
// their route family.
func routeLabel(r *http.Request) string {
	switch {
	case strings.HasPrefix(r.URL.Path, "/private-api/balance/"):
		return "balance"
	case strings.HasPrefix(r.URL.Path, "/private-api/broadcast/"):
		return "broadcast"
	case r.URL.Path == "/healthz":
		return "healthz"
	default:
		return "other"
	}
}
