// Package category holds the crypto category configuration: a built-in
// default basket layout plus an optional YAML override file.
package category

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crypto-market-lab/internal/domain"
)

// Defaults returns the built-in category baskets.
func Defaults() domain.CategoryMap {
	return domain.CategoryMap{
		"Layer1": {
			"BTC", "ETH", "SOL", "ADA", "AVAX", "NEAR", "APT", "ALGO",
			"ICP", "TON", "ETC", "BCH", "HBAR", "SUI", "VET", "LTC",
		},
		"Layer2":         {"OP", "ARB", "POL", "MNT"},
		"DeFi":           {"UNI", "AAVE", "BGB", "LEO", "RENDER", "OM"},
		"Exchange":       {"BNB", "OKB", "CRO"},
		"Infrastructure": {"LINK", "FIL", "XLM", "TRX", "XRP", "VIRTUAL"},
		"Privacy":        {"XMR"},
		"Stablecoin":     {"USDT", "USDC", "DAI", "USDe"},
		"Meme":           {"DOGE", "SHIB", "PEPE", "HYPE", "ENA"},
		"AI & Data":      {"FET", "KAS", "TAO"},
		"Cross-Chain":    {"ATOM", "DOT"},
	}
}

// Load reads a category map from a YAML file of the form:
//
//	Layer1: [BTC, ETH]
//	Meme: [DOGE]
//
// An empty path returns the defaults.
func Load(path string) (domain.CategoryMap, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	var m domain.CategoryMap
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse categories %s: %w", path, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("categories %s: no categories defined", path)
	}
	return m, nil
}
