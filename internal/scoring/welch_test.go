package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelchTTest(t *testing.T) {
	t.Run("known separation", func(t *testing.T) {
		// equal variances and n, so t = -1 and df = 8
		g1 := []float64{1, 2, 3, 4, 5}
		g2 := []float64{2, 3, 4, 5, 6}
		res := WelchTTest(g1, g2)
		assert.True(t, res.OK)
		assert.InDelta(t, -1.0, res.T, 1e-9)
		assert.InDelta(t, 8.0, res.DF, 1e-9)
		assert.InDelta(t, 0.3466, res.PValue, 1e-3)
	})

	t.Run("identical groups are maximally insignificant", func(t *testing.T) {
		g := []float64{4, 5, 6, 7}
		res := WelchTTest(g, g)
		assert.True(t, res.OK)
		assert.InDelta(t, 0.0, res.T, 1e-12)
		assert.InDelta(t, 1.0, res.PValue, 1e-9)
	})

	t.Run("strong separation yields tiny p", func(t *testing.T) {
		g1 := []float64{10, 10.5, 9.5, 10.2}
		g2 := []float64{1, 1.2, 0.9, 1.1}
		res := WelchTTest(g1, g2)
		assert.True(t, res.OK)
		assert.Greater(t, res.T, 20.0)
		assert.Less(t, res.PValue, 1e-4)
	})

	t.Run("single value in a group is not testable", func(t *testing.T) {
		res := WelchTTest([]float64{5}, []float64{1, 2, 3})
		assert.False(t, res.OK)
		assert.True(t, math.IsNaN(res.PValue))
	})

	t.Run("missing values are dropped before the count check", func(t *testing.T) {
		nan := math.NaN()
		res := WelchTTest([]float64{5, nan, nan}, []float64{1, 2, 3})
		assert.False(t, res.OK)
	})

	t.Run("zero variance in both groups is not testable", func(t *testing.T) {
		res := WelchTTest([]float64{3, 3, 3}, []float64{7, 7, 7})
		assert.False(t, res.OK)
		assert.True(t, math.IsNaN(res.PValue))
	})

	t.Run("p stays within the unit interval", func(t *testing.T) {
		res := WelchTTest([]float64{100, 101, 99}, []float64{1, 1.1, 0.9})
		assert.True(t, res.OK)
		assert.GreaterOrEqual(t, res.PValue, 0.0)
		assert.LessOrEqual(t, res.PValue, 1.0)
	})
}
