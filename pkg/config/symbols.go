package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SymbolParams are per-symbol trading parameters: order bounds, quantity
// precision, and the exchange's minimum notional. Real exchanges vary these
// per instrument, so sizing must read them rather than assume one precision.
type SymbolParams struct {
	MinAmount   float64 `yaml:"min_amount"`
	MaxAmount   float64 `yaml:"max_amount"`
	Precision   int     `yaml:"precision"`
	MinNotional float64 `yaml:"min_notional"`
}

// SymbolTable resolves trading parameters per symbol with a default row.
type SymbolTable struct {
	Symbols map[string]SymbolParams `yaml:"symbols"`
	Default SymbolParams            `yaml:"default"`
}

// DefaultSymbolTable is used when no symbols file is present.
func DefaultSymbolTable() *SymbolTable {
	return &SymbolTable{
		Symbols: map[string]SymbolParams{},
		Default: SymbolParams{Precision: 8, MinNotional: 3},
	}
}

// LoadSymbols reads the YAML symbols file. A missing file is not an error;
// the default table applies.
func LoadSymbols(path string) (*SymbolTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSymbolTable(), nil
		}
		return nil, fmt.Errorf("read symbols config: %w", err)
	}

	table := DefaultSymbolTable()
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("parse symbols config: %w", err)
	}
	if table.Default.Precision <= 0 {
		table.Default.Precision = 8
	}
	return table, nil
}

// Params returns the parameters for a symbol, falling back to defaults for
// any unset field.
func (t *SymbolTable) Params(symbol string) SymbolParams {
	p, ok := t.Symbols[symbol]
	if !ok {
		return t.Default
	}
	if p.Precision <= 0 {
		p.Precision = t.Default.Precision
	}
	if p.MinNotional <= 0 {
		p.MinNotional = t.Default.MinNotional
	}
	return p
}
