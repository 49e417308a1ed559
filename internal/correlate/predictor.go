package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Predictor is the pluggable model-fitting capability: given feature/target
// pairs, produce a fitted predictor with feature-importance metadata. The
// training procedure behind richer implementations is out of scope here; the
// in-tree baseline is ordinary least squares.
type Predictor interface {
	// Fit trains on rows of features against targets. Rows must all share
	// the feature names' order.
	Fit(featureNames []string, rows [][]float64, targets []float64) (FittedModel, error)
}

// FittedModel predicts a production metric from weather features and exposes
// which features drove the fit.
type FittedModel interface {
	Predict(features []float64) float64
	FeatureImportance() map[string]float64
}

// LeastSquares fits a linear model on standardized features. Importance is
// the absolute standardized coefficient, normalized to sum to 1.
type LeastSquares struct{}

type linearModel struct {
	names      []string
	means      []float64
	stds       []float64
	coeffs     []float64 // per standardized feature
	intercept  float64
	importance map[string]float64
}

// Fit solves the normal equations via QR. Needs more rows than features;
// constant features are kept with zero weight rather than rejected.
func (LeastSquares) Fit(featureNames []string, rows [][]float64, targets []float64) (FittedModel, error) {
	n, k := len(rows), len(featureNames)
	if n == 0 || k == 0 {
		return nil, fmt.Errorf("fit: empty training data")
	}
	if n != len(targets) {
		return nil, fmt.Errorf("fit: %d rows vs %d targets", n, len(targets))
	}
	if n <= k {
		return nil, fmt.Errorf("fit: need more than %d rows for %d features, got %d", k, k, n)
	}

	means := make([]float64, k)
	stds := make([]float64, k)
	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i := range rows {
			if len(rows[i]) != k {
				return nil, fmt.Errorf("fit: row %d has %d features, want %d", i, len(rows[i]), k)
			}
			col[i] = rows[i][j]
		}
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.StdDev(col, nil)
	}

	// Design matrix: intercept column plus standardized features.
	x := mat.NewDense(n, k+1, nil)
	for i := range rows {
		x.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			x.Set(i, j+1, standardize(rows[i][j], means[j], stds[j]))
		}
	}
	y := mat.NewVecDense(n, targets)

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, fmt.Errorf("fit: solve least squares: %w", err)
	}

	model := &linearModel{
		names:      featureNames,
		means:      means,
		stds:       stds,
		intercept:  beta.AtVec(0),
		coeffs:     make([]float64, k),
		importance: make(map[string]float64, k),
	}
	total := 0.0
	for j := 0; j < k; j++ {
		model.coeffs[j] = beta.AtVec(j + 1)
		total += math.Abs(model.coeffs[j])
	}
	for j, name := range featureNames {
		if total > 0 {
			model.importance[name] = math.Abs(model.coeffs[j]) / total
		} else {
			model.importance[name] = 0
		}
	}
	return model, nil
}

func (m *linearModel) Predict(features []float64) float64 {
	v := m.intercept
	for j, c := range m.coeffs {
		if j < len(features) {
			v += c * standardize(features[j], m.means[j], m.stds[j])
		}
	}
	return v
}

func (m *linearModel) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(m.importance))
	for k, v := range m.importance {
		out[k] = v
	}
	return out
}

func standardize(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}
