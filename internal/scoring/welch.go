package scoring

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of one per-gene Welch comparison
type TestResult struct {
	T      float64
	DF     float64
	PValue float64
	OK     bool // false when the gene carried too little data for a test
}

// WelchTTest compares two groups with unequal variances. Genes with fewer
// than two usable values in either group, or zero variance in both groups,
// are not testable: the result carries OK=false and no p-value is invented
// for them.
func WelchTTest(caseVals, controlVals []float64) TestResult {
	g1 := validValues(caseVals)
	g2 := validValues(controlVals)
	if len(g1) < 2 || len(g2) < 2 {
		return TestResult{PValue: math.NaN()}
	}

	mean1, _ := stats.Mean(g1)
	mean2, _ := stats.Mean(g2)
	var1, _ := stats.SampleVariance(g1)
	var2, _ := stats.SampleVariance(g2)

	if var1 == 0 && var2 == 0 {
		return TestResult{PValue: math.NaN()}
	}

	n1 := float64(len(g1))
	n2 := float64(len(g2))
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 || math.IsNaN(se) {
		return TestResult{PValue: math.NaN()}
	}

	t := (mean1 - mean2) / se

	// Welch–Satterthwaite degrees of freedom
	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))
	if df <= 0 || math.IsNaN(df) {
		return TestResult{PValue: math.NaN()}
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}

	return TestResult{T: t, DF: df, PValue: p, OK: true}
}
