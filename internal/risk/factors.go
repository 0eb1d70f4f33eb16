package risk

import (
	"math"
	"sort"
	"strconv"
)

// TopFactors ranks features by absolute contribution (value * weight)
// and returns the strongest limit entries. Ties break on feature name so
// identical inputs always explain identically.
func TopFactors(fv FeatureVector, weights map[string]float64, limit int) []Factor {
	if limit <= 0 {
		limit = 10
	}

	factors := make([]Factor, 0, len(weights))
	for name, weight := range weights {
		value := fv.Get(name)
		factors = append(factors, Factor{
			Name:         name,
			Impact:       weight,
			Value:        strconv.FormatFloat(value, 'f', 3, 64),
			Contribution: value * weight,
		})
	}

	sort.Slice(factors, func(i, j int) bool {
		ci, cj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ci != cj {
			return ci > cj
		}
		return factors[i].Name < factors[j].Name
	})

	if len(factors) > limit {
		factors = factors[:limit]
	}
	return factors
}
