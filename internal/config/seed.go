package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mertz1999/ai-money-tracker/internal/common"
)

// Seed is the initial data loaded by `tracker seed`.
type Seed struct {
	Categories []string     `yaml:"categories"`
	Sources    []SeedSource `yaml:"sources"`
}

// SeedSource describes one source to open. Value is in the source's currency.
type SeedSource struct {
	Name    string          `yaml:"name"`
	Value   decimal.Decimal `yaml:"value"`
	OwnerID int64           `yaml:"owner"`
	Bank    bool            `yaml:"bank"`
	USD     bool            `yaml:"usd"`
}

// DefaultSeed returns the categories every new ledger starts with.
func DefaultSeed() *Seed {
	return &Seed{
		Categories: []string{
			"personal-shopping",
			"education",
			"gift",
			"travel",
			"subscriptions",
			"business-expense",
			"charity",
			"taxi",
			"income",
			"other",
		},
	}
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse seed YAML: %v", common.ErrInvalidConfig, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate rejects blank names, negative opening values and duplicate sources.
func (s *Seed) Validate() error {
	for i, name := range s.Categories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: category %d has no name", common.ErrInvalidConfig, i)
		}
	}

	seen := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("%w: source %d has no name", common.ErrInvalidConfig, i)
		}
		if src.Value.IsNegative() {
			return fmt.Errorf("%w: source %q has negative value %s", common.ErrInvalidConfig, src.Name, src.Value)
		}
		key := fmt.Sprintf("%d/%s", src.OwnerID, strings.ToLower(strings.TrimSpace(src.Name)))
		if seen[key] {
			return fmt.Errorf("%w: source %q listed twice for owner %d", common.ErrInvalidConfig, src.Name, src.OwnerID)
		}
		seen[key] = true
	}
	return nil
}
