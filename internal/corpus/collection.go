// Package corpus defines the collections the distance model is trained on
// and the file formats used to load them.
package corpus

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus/tokenizer"
)

// Collection is one training instance: a keyed multiset of items. The ID is
// the collection's identity in the vector space; Items may repeat.
type Collection struct {
	ID    string   `json:"id" yaml:"id"`
	Items []string `json:"items" yaml:"items"`
}

// New returns a collection with the given ID and items.
func New(id string, items ...string) Collection {
	return Collection{ID: id, Items: items}
}

// FromString treats every rune of s as an item and s itself as the ID, so
// "bbb" is the collection {b, b, b}.
func FromString(s string) Collection {
	items := make([]string, 0, len(s))
	for _, r := range s {
		items = append(items, string(r))
	}
	return Collection{ID: s, Items: items}
}

// FromStrings applies FromString to every element of ss.
func FromStrings(ss ...string) []Collection {
	out := make([]Collection, len(ss))
	for i, s := range ss {
		out[i] = FromString(s)
	}
	return out
}

// FromText tokenizes text into items using the default tokenizer.
func FromText(id, text string) Collection {
	return Collection{ID: id, Items: tokenizer.Items(text)}
}

// IDs returns the IDs of cs in order.
func IDs(cs []Collection) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// ParseIDList splits a comma-separated list of collection IDs, dropping
// blanks.
func ParseIDList(s string) []string {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
