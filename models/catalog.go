package models

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/providers"
)

//go:embed schema.json
var configSchema string

// ConfigPathEnv names the env var holding the catalog config file path.
const ConfigPathEnv = "OPTIMODEL_CONFIG_PATH"

// ProviderEntry is one (logical model, provider) row of the catalog: the
// pricing, capability, and ranking data the planner orders candidates by.
// Entries are immutable after load.
type ProviderEntry struct {
	LogicalModel  string
	Provider      providers.ID
	NativeModelID string
	MaxGenLen     int
	SpeedRank     int

	// Per-1M-token USD rates. nil means the pricing document publishes no
	// rate; downstream cost stays null rather than guessing.
	PricePer1MInput           *float64
	PricePer1MOutput          *float64
	PricePer1MInputAbove128K  *float64
	PricePer1MOutputAbove128K *float64

	SupportsSAAS     bool
	SupportsJSONMode bool
	SupportsImages   bool
}

// AvgPrice is the planner's price ordering key: the mean of the base input
// and output rates. Entries with no published rate sort last.
func (e ProviderEntry) AvgPrice() float64 {
	if e.PricePer1MInput == nil || e.PricePer1MOutput == nil {
		return maxAvgPrice
	}
	return (*e.PricePer1MInput + *e.PricePer1MOutput) / 2
}

const maxAvgPrice = 1e18

// Catalog is the loaded provider entry table, keyed by logical model.
type Catalog struct {
	entries map[string][]ProviderEntry
}

// Config wire shape.

type configFile struct {
	AvailableModels map[string][]configEntry `json:"availableModels"`
}

type configEntry struct {
	Name             string `json:"name"`
	NativeModelID    string `json:"nativeModelId"`
	MaxGenLen        int    `json:"maxGenLen"`
	Speed            int    `json:"speed"`
	LiteLLMIndex     string `json:"liteLLMIndex"`
	SupportsJSONMode *bool  `json:"supportsJSONMode"`
	SupportsImages   *bool  `json:"supportsImages"`
}

// LoadOptions tunes catalog loading.
type LoadOptions struct {
	// SAASMode replaces startup adapter validation with the static
	// SupportsSAAS capability check.
	SAASMode bool
	// SkipValidation skips adapter connectivity checks entirely. Used by
	// the CLI validate command, which has no live credentials.
	SkipValidation bool
}

// Load reads, validates, and enriches the catalog config at path. JSON and
// YAML are both accepted; the document must satisfy the embedded schema.
//
// An unknown logical model name is fatal. A provider with no registered
// adapter drops its entries with a warning. In self-hosted mode each
// provider's adapter is validated at startup and failing providers are
// dropped; in SAAS mode the static SupportsSAAS capability gates instead.
func Load(ctx context.Context, path string, reg *providers.Registry, pricing PricingTable, opts LoadOptions) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("convert config: %w", err)
		}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var cfg configFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	log := logging.FromContext(ctx)
	c := &Catalog{entries: make(map[string][]ProviderEntry)}

	// Sorted provider iteration keeps catalog insertion order deterministic;
	// the planner's stable sort preserves it on ties.
	names := make([]string, 0, len(cfg.AvailableModels))
	for name := range cfg.AvailableModels {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		id, err := providers.ParseID(name)
		if err != nil {
			log.Warn("dropping config provider with no adapter", "provider", name)
			continue
		}
		adapter, ok := reg.Get(id)
		if !ok {
			log.Warn("dropping config provider with no adapter", "provider", name)
			continue
		}

		if !opts.SkipValidation {
			if opts.SAASMode {
				if !adapter.SupportsSAAS() {
					log.Warn("dropping provider without SAAS support", "provider", name)
					continue
				}
			} else if err := adapter.Validate(ctx); err != nil {
				log.Warn("dropping provider failing startup validation", "provider", name, "error", err)
				continue
			}
		}

		for _, entry := range cfg.AvailableModels[name] {
			if !KnownLogicalModel(entry.Name) {
				return nil, fmt.Errorf("config: unknown logical model %q under provider %q", entry.Name, name)
			}

			pe := ProviderEntry{
				LogicalModel:     entry.Name,
				Provider:         id,
				NativeModelID:    entry.NativeModelID,
				MaxGenLen:        entry.MaxGenLen,
				SpeedRank:        entry.Speed,
				SupportsSAAS:     adapter.SupportsSAAS(),
				SupportsJSONMode: adapter.SupportsJSONMode(),
				SupportsImages:   adapter.SupportsImages(),
			}
			if entry.SupportsJSONMode != nil {
				pe.SupportsJSONMode = *entry.SupportsJSONMode
			}
			if entry.SupportsImages != nil {
				pe.SupportsImages = *entry.SupportsImages
			}

			if rates, ok := pricing[entry.LiteLLMIndex]; ok {
				pe.PricePer1MInput = perMillion(rates.InputCostPerToken)
				pe.PricePer1MOutput = perMillion(rates.OutputCostPerToken)
				pe.PricePer1MInputAbove128K = perMillion(rates.InputCostPerTokenAbove128K)
				pe.PricePer1MOutputAbove128K = perMillion(rates.OutputCostPerTokenAbove128K)
			} else {
				log.Warn("no pricing for catalog entry", "model", entry.Name, "liteLLMIndex", entry.LiteLLMIndex)
			}

			c.entries[entry.Name] = append(c.entries[entry.Name], pe)
		}
	}

	return c, nil
}

// yamlToJSON converts a YAML document to its JSON encoding so one schema and
// one decode path serve both formats.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML rewrites map[any]any (yaml.v3 nested maps) into
// map[string]any for json.Marshal.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	}
	return v
}

func validateSchema(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config schema violation: %w", err)
	}
	return nil
}

// Lookup returns the catalog entries for a logical model, in insertion
// order. The slice is shared; callers must not mutate it.
func (c *Catalog) Lookup(logicalModel string) []ProviderEntry {
	return c.entries[logicalModel]
}

// Models returns the full table keyed by logical model.
func (c *Catalog) Models() map[string][]ProviderEntry {
	return c.entries
}

// NewCatalog builds a catalog directly from entries. Tests and embedders use
// this to bypass file loading.
func NewCatalog(entries map[string][]ProviderEntry) *Catalog {
	if entries == nil {
		entries = make(map[string][]ProviderEntry)
	}
	return &Catalog{entries: entries}
}
