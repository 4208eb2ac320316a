package scoring

import (
	"math"
	"sort"

	"pahscreen/domain/score"
)

// AdjustQValues applies Benjamini–Hochberg FDR correction in place across
// all tested genes in the table. The correction family is exactly the set
// of genes carrying a valid p-value; genes flagged insufficient_data keep
// their NaN q-value and never enter the family.
func AdjustQValues(scores []score.GeneScore) {
	var tested []int
	for i := range scores {
		if !math.IsNaN(scores[i].PValue) {
			tested = append(tested, i)
		}
	}
	if len(tested) == 0 {
		return
	}

	sort.Slice(tested, func(a, b int) bool {
		return scores[tested[a]].PValue < scores[tested[b]].PValue
	})

	m := float64(len(tested))
	// q_i = min over j >= i of p_j * m / rank_j, walking from the largest rank
	minQ := 1.0
	for r := len(tested) - 1; r >= 0; r-- {
		i := tested[r]
		q := scores[i].PValue * m / float64(r+1)
		if q < minQ {
			minQ = q
		}
		scores[i].QValue = minQ
	}
}
