package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ecency/vision-api/internal/chain"
	"github.com/ecency/vision-api/internal/chain/aptos"
	"github.com/ecency/vision-api/internal/chain/bnb"
	"github.com/ecency/vision-api/internal/chain/btc"
	"github.com/ecency/vision-api/internal/chain/ethereum"
	"github.com/ecency/vision-api/internal/chain/solana"
	"github.com/ecency/vision-api/internal/chain/ton"
	"github.com/ecency/vision-api/internal/chain/tron"
	"github.com/ecency/vision-api/internal/circuitbreaker"
	"github.com/ecency/vision-api/internal/config"
	"github.com/ecency/vision-api/internal/fallback"
	"github.com/ecency/vision-api/internal/gateway"
	"github.com/ecency/vision-api/internal/nodedir"
	"github.com/ecency/vision-api/internal/tracing"
)

const (
	fallbackFailureThreshold = 5
	fallbackOpenTimeout      = 60 * time.Second
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting balance gateway",
		"port", cfg.Server.Port,
		"metrics_port", cfg.Server.MetricsPort,
		"node_provider", cfg.NodeDir.BaseURL,
		"node_list_ttl", cfg.NodeDir.TTL.String(),
		"chainz_configured", cfg.Fallback.ChainzAPIKey != "",
		"blockstream_configured", cfg.Fallback.BlockstreamClientID != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "balance-gateway", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	directory, err := buildDirectory(cfg, logger)
	if err != nil {
		logger.Error("failed to build node directory", "error", err)
		os.Exit(1)
	}

	adapters := []chain.Adapter{
		btc.NewAdapter(logger),
		ethereum.NewAdapter(logger),
		bnb.NewAdapter(logger),
		tron.NewAdapter(logger),
		solana.NewAdapter(logger),
		ton.NewAdapter(logger),
		aptos.NewAdapter(logger),
	}

	service := gateway.NewService(adapters, directory, buildFallbacks(cfg, logger), logger)
	server := gateway.NewServer(service, logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gCtx, cfg.Server.Port, server.Handler(), "api", logger)
	})
	g.Go(func() error {
		return runHTTPServer(gCtx, cfg.Server.MetricsPort, metricsHandler(), "metrics", logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func buildDirectory(cfg *config.Config, logger *slog.Logger) (*nodedir.Directory, error) {
	opts := []nodedir.Option{nodedir.WithTTL(cfg.NodeDir.TTL)}
	if cfg.NodeDir.RulesPath != "" {
		rules, err := nodedir.LoadRules(cfg.NodeDir.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load node rules: %w", err)
		}
		opts = append(opts, nodedir.WithRules(rules))
	}
	return nodedir.New(cfg.NodeDir.BaseURL, cfg.NodeDir.APIKey, logger, opts...), nil
}

// buildFallbacks assembles the ordered Bitcoin cascade. Providers with
// missing credentials are left out rather than failing startup.
func buildFallbacks(cfg *config.Config, logger *slog.Logger) []fallback.Provider {
	var providers []fallback.Provider

	if cfg.Fallback.ChainzAPIKey != "" {
		var opts []fallback.ChainzOption
		if cfg.Fallback.ChainzURL != "" {
			opts = append(opts, fallback.WithChainzURL(cfg.Fallback.ChainzURL))
		}
		chainz := fallback.NewChainz(cfg.Fallback.ChainzAPIKey, logger, opts...)
		providers = append(providers, fallback.Guard(chainz,
			circuitbreaker.New(fallbackFailureThreshold, fallbackOpenTimeout)))
	} else {
		logger.Warn("chainz fallback disabled, no API key configured")
	}

	if cfg.Fallback.BlockstreamClientID != "" && cfg.Fallback.BlockstreamClientSecret != "" {
		var opts []fallback.BlockstreamOption
		if cfg.Fallback.BlockstreamURL != "" {
			opts = append(opts, fallback.WithBlockstreamURL(cfg.Fallback.BlockstreamURL))
		}
		if cfg.Fallback.BlockstreamTokenURL != "" {
			opts = append(opts, fallback.WithBlockstreamTokenURL(cfg.Fallback.BlockstreamTokenURL))
		}
		blockstream := fallback.NewBlockstream(
			cfg.Fallback.BlockstreamClientID, cfg.Fallback.BlockstreamClientSecret, logger, opts...)
		providers = append(providers, fallback.Guard(blockstream,
			circuitbreaker.New(fallbackFailureThreshold, fallbackOpenTimeout)))
	} else {
		logger.Warn("blockstream fallback disabled, no client credentials configured")
	}

	return providers
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func runHTTPServer(ctx context.Context, port int, handler http.Handler, name string, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("server shutdown error", "server", name, "error", err)
		}
	}()

	logger.Info("server started", "server", name, "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
