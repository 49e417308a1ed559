package correlate

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// pearson computes the Pearson product-moment correlation between xs and ys
// together with the two-tailed p-value from the Student's t distribution with
// n-2 degrees of freedom. ok is false when either series has zero variance or
// there are fewer than 3 points, in which case no correlation is defined.
func pearson(xs, ys []float64) (r, p float64, ok bool) {
	n := len(xs)
	if n < 3 || n != len(ys) {
		return 0, 1, false
	}

	r = stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, 1, false
	}
	// Guard rounding drift out of [-1,1] before the t transform.
	r = math.Max(-1, math.Min(1, r))

	if math.Abs(r) == 1 {
		return r, 0, true
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * tDist.Survival(math.Abs(t))
	return r, p, true
}

// fisherInterval returns the 95% confidence interval for r using the Fisher
// z-transform. Degenerate for |r|=1 or tiny samples; callers get the clamped
// point estimate in that case.
func fisherInterval(r float64, n int) [2]float64 {
	if n < 4 || math.Abs(r) >= 1 {
		return [2]float64{r, r}
	}
	z := 0.5 * math.Log((1+r)/(1-r))
	se := 1 / math.Sqrt(float64(n-3))
	const z95 = 1.959963984540054

	lo := math.Tanh(z - z95*se)
	hi := math.Tanh(z + z95*se)
	return [2]float64{lo, hi}
}
