package faxlog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// aliasFile is the on-disk shape of config/columns.yaml.
type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliases reads an alias configuration file and overlays it on the
// built-in table. Configured aliases rank ahead of the built-in ones
// for their field, with the canonical name itself always the
// highest-priority alias. Fields absent from the file keep their
// defaults untouched.
func LoadAliases(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AliasTable{}, fmt.Errorf("read alias config: %w", err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return AliasTable{}, fmt.Errorf("parse alias config: %w", err)
	}

	table := DefaultAliases()
	for field, aliases := range f.Aliases {
		cf := CanonicalField(field)
		merged := append([]string{field}, aliases...)
		merged = append(merged, table.aliasesFor(cf)...)
		table = table.WithAliases(cf, merged)
	}
	return table, nil
}
