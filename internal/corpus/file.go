package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk corpus layout:
//
//	collections:
//	  - id: doc-1
//	    items: [search, engine, search]
//	  - id: doc-2
//	    text: "Distributed indexing of documents"
//	  - chars: bbb
type File struct {
	Collections []FileEntry `yaml:"collections"`
}

// FileEntry describes one collection. Exactly one of Items, Text or Chars
// should be set; Chars doubles as the ID when ID is empty.
type FileEntry struct {
	ID    string   `yaml:"id"`
	Items []string `yaml:"items"`
	Text  string   `yaml:"text"`
	Chars string   `yaml:"chars"`
}

// Parse decodes a YAML corpus document.
func Parse(data []byte) ([]Collection, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	out := make([]Collection, 0, len(f.Collections))
	for i, e := range f.Collections {
		c, err := e.collection()
		if err != nil {
			return nil, fmt.Errorf("corpus entry %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadFile reads and parses a YAML corpus file.
func LoadFile(path string) ([]Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	cs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading corpus file %s: %w", path, err)
	}
	return cs, nil
}

func (e FileEntry) collection() (Collection, error) {
	switch {
	case e.Chars != "":
		c := FromString(e.Chars)
		if e.ID != "" {
			c.ID = e.ID
		}
		return c, nil
	case e.ID == "":
		return Collection{}, fmt.Errorf("missing id")
	case e.Text != "":
		return FromText(e.ID, e.Text), nil
	default:
		return New(e.ID, e.Items...), nil
	}
}
