package claim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk claim layout:
//
//	claims:
//	  - left: [ab]
//	    right: [bbb]
//	    interval: {lo: 0.5, hi: 1}
type File struct {
	Claims []OracleClaim `yaml:"claims"`
}

// Parse decodes and validates a YAML claim document.
func Parse(data []byte) ([]OracleClaim, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}
	for i, c := range f.Claims {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("claim entry %d: %w", i, err)
		}
	}
	return f.Claims, nil
}

// LoadFile reads and parses a YAML claim file.
func LoadFile(path string) ([]OracleClaim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading claims file %s: %w", path, err)
	}
	claims, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading claims file %s: %w", path, err)
	}
	return claims, nil
}
