package nodedir

import (
	"fmt"
	"os"
	"strings"

	"github.com/ecency/vision-api/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// MatchRule decides whether a node can serve a chain. A node matches when its
// https endpoint URL contains any of Hosts, or when RequireTON/RequireAptos
// demand a chain-specific endpoint field that the node populates. Rules are
// data so operators can override them without a code change.
type MatchRule struct {
	Chain        model.Chain `yaml:"chain"`
	Hosts        []string    `yaml:"hosts"`
	RequireTON   bool        `yaml:"require_ton"`
	RequireAptos bool        `yaml:"require_aptos"`
}

// DefaultRules matches the hostnames the provisioning service is known to
// hand out. TON and Aptos nodes are recognized by their dedicated endpoint
// fields rather than a hostname.
func DefaultRules() []MatchRule {
	return []MatchRule{
		{Chain: model.ChainBitcoin, Hosts: []string{"bitcoin", "btc"}},
		{Chain: model.ChainEthereum, Hosts: []string{"ethereum", "eth-mainnet"}},
		{Chain: model.ChainBNB, Hosts: []string{"bsc", "bnb"}},
		{Chain: model.ChainSolana, Hosts: []string{"solana"}},
		{Chain: model.ChainTron, Hosts: []string{"tron", "trx"}},
		{Chain: model.ChainTON, RequireTON: true},
		{Chain: model.ChainAptos, RequireAptos: true},
	}
}

// LoadRules reads match rules from a YAML file. An empty path returns the
// defaults.
func LoadRules(path string) ([]MatchRule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc struct {
		Rules []MatchRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}
	return doc.Rules, nil
}

func (r MatchRule) matches(node *NodeDescriptor) bool {
	if r.RequireTON {
		return node.Endpoint.TONV3 != "" || node.Endpoint.TONV2 != ""
	}
	if r.RequireAptos {
		return node.Endpoint.AptosREST != ""
	}
	url := strings.ToLower(node.Endpoint.HTTPS)
	if url == "" {
		return false
	}
	for _, host := range r.Hosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}
