// Package space builds the item/collection vector space of a training
// corpus: the two index maps and the item x collection incidence matrix of
// counts. A Space is immutable once built.
package space

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/linalg"
)

type Space struct {
	items       *Index
	collections *Index
	matrix      *linalg.CSR
}

// New indexes every item and collection of the corpus and counts item
// multiplicities per collection. A collection ID repeated in the corpus
// keeps its first position and accumulates the counts of every occurrence.
func New(collections []corpus.Collection) (*Space, error) {
	if len(collections) == 0 {
		return nil, fmt.Errorf("building vector space: %w", apperrors.ErrEmptyCorpus)
	}
	items := NewIndex()
	colls := NewIndex()
	for _, c := range collections {
		for _, item := range c.Items {
			items.Add(item)
		}
	}
	for _, c := range collections {
		colls.Add(c.ID)
	}

	b := linalg.NewBuilder(items.Len(), colls.Len())
	for _, c := range collections {
		j, _ := colls.Lookup(c.ID)
		for _, item := range c.Items {
			i, _ := items.Lookup(item)
			b.Add(i, j, 1)
		}
	}
	return &Space{
		items:       items,
		collections: colls,
		matrix:      b.Build(),
	}, nil
}

func (s *Space) Items() *Index {
	return s.items
}

func (s *Space) Collections() *Index {
	return s.collections
}

// Matrix returns the item x collection incidence matrix.
func (s *Space) Matrix() *linalg.CSR {
	return s.matrix
}

func (s *Space) ItemCount() int {
	return s.items.Len()
}

func (s *Space) CollectionCount() int {
	return s.collections.Len()
}

// ItemVector lays a sparse item distribution out as a dense vector. Items
// absent from the distribution are zero; items unknown to the space are
// ignored.
func (s *Space) ItemVector(dist map[string]float64) []float64 {
	return vectorFromMap(s.items, dist)
}

// CollectionVector is ItemVector over collection IDs.
func (s *Space) CollectionVector(dist map[string]float64) []float64 {
	return vectorFromMap(s.collections, dist)
}

// ItemMap is the inverse of ItemVector.
func (s *Space) ItemMap(v []float64) map[string]float64 {
	return mapFromVector(s.items, v)
}

// CollectionMap is the inverse of CollectionVector.
func (s *Space) CollectionMap(v []float64) map[string]float64 {
	return mapFromVector(s.collections, v)
}

// Presence returns the collection-space vector with 1 at every indexed
// collection named in ids. Repeated IDs count once; unknown IDs contribute
// nothing.
func (s *Space) Presence(ids []string) []float64 {
	v := linalg.Zeros(s.collections.Len())
	for _, id := range ids {
		if j, ok := s.collections.Lookup(id); ok {
			v[j] = 1
		}
	}
	return v
}

// CollectionsContaining returns the number of distinct training collections
// that contain item, or 0 for an unknown item.
func (s *Space) CollectionsContaining(item string) int {
	i, ok := s.items.Lookup(item)
	if !ok {
		return 0
	}
	return s.matrix.RowNNZ(i)
}

func vectorFromMap(idx *Index, dist map[string]float64) []float64 {
	v := linalg.Zeros(idx.Len())
	for key, value := range dist {
		if pos, ok := idx.Lookup(key); ok {
			v[pos] = value
		}
	}
	return v
}

func mapFromVector(idx *Index, v []float64) map[string]float64 {
	out := make(map[string]float64, idx.Len())
	for pos, key := range idx.keys {
		if pos < len(v) {
			out[key] = v[pos]
		}
	}
	return out
}
