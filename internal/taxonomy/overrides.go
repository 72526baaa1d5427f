// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package taxonomy

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// Overrides maps an exact key (a raw person name or a raw department
// string) to an operator-supplied unit triple. The document form is a
// YAML mapping:
//
//	"REDISH, A DAVID":
//	  school: Medical School
//	  department: Medicine
//	  division: Cardiovascular
type Overrides map[string]types.OverrideEntry

// Lookup returns the override for key. A nil Overrides has no entries.
func (o Overrides) Lookup(key string) (types.OverrideEntry, bool) {
	e, ok := o[key]
	return e, ok
}

// ParseOverrides decodes an override document. Every entry must name a
// school and a department.
func ParseOverrides(data []byte) (Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	for key, e := range o {
		if key == "" {
			return nil, fmt.Errorf("parsing overrides: empty key")
		}
		if e.School == "" || e.Department == "" {
			return nil, fmt.Errorf("parsing overrides: entry %q needs school and department", key)
		}
	}
	if o == nil {
		o = Overrides{}
	}
	return o, nil
}

// LoadOverrides reads an override document. Override documents are
// optional: an empty path or a missing file yields an empty table.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return Overrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Overrides{}, nil
		}
		return nil, fmt.Errorf("reading overrides %s: %w", path, err)
	}
	return ParseOverrides(data)
}
