package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	NodeDir  NodeDirConfig
	Fallback FallbackConfig
	Tracing  TracingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        int
	MetricsPort int
}

type NodeDirConfig struct {
	BaseURL   string
	APIKey    string
	TTL       time.Duration
	RulesPath string
}

type FallbackConfig struct {
	ChainzAPIKey            string
	ChainzURL               string
	BlockstreamClientID     string
	BlockstreamClientSecret string
	BlockstreamURL          string
	BlockstreamTokenURL     string
}

type TracingConfig struct {
	Endpoint string
	Insecure bool
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 4000),
			MetricsPort: getEnvInt("METRICS_PORT", 9090),
		},
		NodeDir: NodeDirConfig{
			BaseURL:   getEnv("NODE_PROVIDER_URL", "https://api.nodeprovider.example.com"),
			APIKey:    getEnv("NODE_PROVIDER_API_KEY", ""),
			TTL:       time.Duration(getEnvInt("NODE_LIST_TTL_MIN", 300)) * time.Minute,
			RulesPath: getEnv("NODE_RULES_FILE", ""),
		},
		Fallback: FallbackConfig{
			ChainzAPIKey:            getEnv("CHAINZ_API_KEY", ""),
			ChainzURL:               getEnv("CHAINZ_URL", ""),
			BlockstreamClientID:     getEnv("BLOCKSTREAM_CLIENT_ID", ""),
			BlockstreamClientSecret: getEnv("BLOCKSTREAM_CLIENT_SECRET", ""),
			BlockstreamURL:          getEnv("BLOCKSTREAM_URL", ""),
			BlockstreamTokenURL:     getEnv("BLOCKSTREAM_TOKEN_URL", ""),
		},
		Tracing: TracingConfig{
			Endpoint: getEnv("OTLP_ENDPOINT", ""),
			Insecure: getEnvBool("OTLP_INSECURE", true),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects only configurations the process cannot run with at all.
// Missing provisioning or fallback credentials degrade features at request
// time instead of failing startup.
func (c *Config) validate() error {
	if c.NodeDir.BaseURL == "" {
		return fmt.Errorf("NODE_PROVIDER_URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Server.Port)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT out of range: %d", c.Server.MetricsPort)
	}
	if c.NodeDir.TTL <= 0 {
		return fmt.Errorf("NODE_LIST_TTL_MIN must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
