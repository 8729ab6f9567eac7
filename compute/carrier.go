package compute

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// DefaultCarrier is assumed when nothing identifies the operator of a train
const DefaultCarrier = "ČD"

// CarrierAlias maps a fragment of free-text train type information to an operator
type CarrierAlias struct {
	Fragment string `yaml:"fragment"`
	Name     string `yaml:"name"`
}

// CarrierTable identifies operators from train type information.
// Aliases are tried in order and the first one whose fragment appears in the
// text wins.
type CarrierTable struct {
	Default string         `yaml:"default"`
	Aliases []CarrierAlias `yaml:"carriers"`
}

// DefaultCarrierTable knows the operators seen on Czech departure boards
var DefaultCarrierTable = &CarrierTable{
	Default: DefaultCarrier,
	Aliases: []CarrierAlias{
		{"regiojet", "RegioJet"},
		{"leo express", "Leo Express"},
		{"leoexpress", "Leo Express"},
		{"arriva", "Arriva"},
		{"gw train", "GW Train Regio"},
		{"länderbahn", "Die Länderbahn"},
		{"trilex", "Die Länderbahn"},
		{"öbb", "ÖBB"},
		{"db regio", "DB Regio"},
		{"ketos", "KŽC Doprava"},
	},
}

// LoadCarrierTable reads a CarrierTable from a YAML file
func LoadCarrierTable(path string) (*CarrierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table CarrierTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("LoadCarrierTable: %s", err)
	}
	for i, alias := range table.Aliases {
		if strings.TrimSpace(alias.Fragment) == "" || strings.TrimSpace(alias.Name) == "" {
			return nil, fmt.Errorf("LoadCarrierTable: carrier %d needs both a fragment and a name", i)
		}
	}
	if table.Default == "" {
		table.Default = DefaultCarrier
	}
	return &table, nil
}

// Match returns the operator identified by typeInfo, or the table default
func (t *CarrierTable) Match(typeInfo string) string {
	if strings.TrimSpace(typeInfo) != "" {
		// Casers keep state, so each call gets its own
		folded := cases.Fold().String(typeInfo)
		for _, alias := range t.Aliases {
			if strings.Contains(folded, cases.Fold().String(alias.Fragment)) {
				return alias.Name
			}
		}
	}
	if t.Default == "" {
		return DefaultCarrier
	}
	return t.Default
}
