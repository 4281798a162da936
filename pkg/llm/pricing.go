package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var defaultPricing []byte

// ModelPricing contains per-model pricing in USD per million tokens.
type ModelPricing struct {
	Model            string  `yaml:"model"`
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// ProviderPricing groups model prices for one backend.
type ProviderPricing struct {
	Provider string         `yaml:"provider"`
	Updated  string         `yaml:"updated"`
	Models   []ModelPricing `yaml:"models"`
}

// PricingTable looks up model prices by provider and model.
type PricingTable struct {
	Providers []ProviderPricing `yaml:"providers"`

	index map[string]ModelPricing
}

// DefaultPricing returns the built-in pricing table.
func DefaultPricing() *PricingTable {
	t, err := ParsePricing(defaultPricing)
	if err != nil {
		panic(fmt.Sprintf("embedded pricing table: %v", err))
	}
	return t
}

// LoadPricing reads a YAML pricing file.
func LoadPricing(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}
	t, err := ParsePricing(data)
	if err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return t, nil
}

// ParsePricing parses YAML pricing data.
func ParsePricing(data []byte) (*PricingTable, error) {
	var t PricingTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse pricing data: %w", err)
	}
	if len(t.Providers) == 0 {
		return nil, fmt.Errorf("no providers defined")
	}

	t.index = make(map[string]ModelPricing)
	for _, p := range t.Providers {
		if p.Provider == "" {
			return nil, fmt.Errorf("missing provider name")
		}
		for _, m := range p.Models {
			t.index[p.Provider+"/"+m.Model] = m
		}
	}
	return &t, nil
}

// Cost returns the USD cost of a call. Unknown models cost zero and report false.
func (t *PricingTable) Cost(provider, model string, usage Usage) (float64, bool) {
	if t == nil {
		return 0, false
	}
	p, ok := t.index[provider+"/"+model]
	if !ok {
		// Dated snapshots such as gpt-4o-mini-2024-07-18 price as their base model.
		key := provider + "/" + model
		for k, m := range t.index {
			if strings.HasPrefix(key, k+"-") && len(m.Model) > len(p.Model) {
				p, ok = m, true
			}
		}
		if !ok {
			return 0, false
		}
	}
	in := float64(usage.InputTokens) * p.InputPerMillion / 1_000_000
	out := float64(usage.OutputTokens) * p.OutputPerMillion / 1_000_000
	return in + out, true
}
