// Package models owns the model catalog: the closed logical model set, the
// provider entry table loaded from operator config, and the pricing data that
// enriches each entry with per-token rates.
//
// Pricing comes from the public LiteLLM pricing document, fetched once at
// startup from a remote URL with an embedded backup as fallback. The catalog
// itself is operator-supplied JSON or YAML and is validated against an
// embedded JSON Schema before use.
package models

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

//go:embed pricing_backup.json
var bundledPricing []byte

// PricingURLEnv is the env var operators set to override the pricing source.
// Useful for air-gapped deployments or custom negotiated rates.
const PricingURLEnv = "OPTIMODEL_PRICING_URL"

const defaultPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// PricingTable maps a LiteLLM index key to per-token rates.
type PricingTable map[string]PricingEntry

// PricingEntry holds per-token USD rates straight from the LiteLLM document.
// nil means the document does not publish that rate.
type PricingEntry struct {
	InputCostPerToken            *float64 `json:"input_cost_per_token"`
	OutputCostPerToken           *float64 `json:"output_cost_per_token"`
	InputCostPerTokenAbove128K   *float64 `json:"input_cost_per_token_above_128k_tokens"`
	OutputCostPerTokenAbove128K  *float64 `json:"output_cost_per_token_above_128k_tokens"`
	MaxInputTokens               *int     `json:"max_input_tokens"`
	MaxOutputTokens              *int     `json:"max_output_tokens"`
}

// LoadPricing fetches the pricing document (1s timeout) and falls back to the
// embedded backup on any failure. Startup never blocks on pricing
// availability.
func LoadPricing() (PricingTable, error) {
	url := os.Getenv(PricingURLEnv)
	if url == "" {
		url = defaultPricingURL
	}

	if data, err := fetchRemote(url); err == nil {
		if t, err := parsePricing(data); err == nil {
			return t, nil
		}
	}
	// Silent fallback to the copy shipped with the binary.
	return parsePricing(bundledPricing)
}

func fetchRemote(url string) ([]byte, error) {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing fetch: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parsePricing(data []byte) (PricingTable, error) {
	var t PricingTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("pricing parse: %w", err)
	}
	// The document carries a "sample_spec" documentation entry; drop it so
	// lookups never match it by accident.
	delete(t, "sample_spec")
	return t, nil
}

// perMillion converts a per-token rate to a per-1M-token rate.
func perMillion(rate *float64) *float64 {
	if rate == nil {
		return nil
	}
	v := *rate * 1_000_000
	return &v
}
