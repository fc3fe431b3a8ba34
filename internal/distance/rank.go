package distance

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/linalg"
)

// ScoredCollection is a training collection and its distance to a query.
type ScoredCollection struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Nearest ranks every training collection by its distance to the query set,
// closest first, ties broken by ID. A limit <= 0 returns all of them.
func (m *Model) Nearest(query []string, limit int) []ScoredCollection {
	q, _ := m.verboseVectorize(query)
	ids := m.Collections().Keys()
	result := make([]ScoredCollection, 0, len(ids))
	single := make([]string, 1)
	for _, id := range ids {
		single[0] = id
		v, _ := m.verboseVectorize(single)
		result = append(result, ScoredCollection{
			ID:       id,
			Distance: linalg.CosineDistance(q, v),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
