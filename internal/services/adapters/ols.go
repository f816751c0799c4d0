package adapters

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// olsSolve fits y = X*beta by least squares via QR decomposition. X is
// row-major with one row per observation.
func olsSolve(X [][]float64, y []float64) ([]float64, error) {
	rows := len(X)
	if rows == 0 || rows != len(y) {
		return nil, fmt.Errorf("ols: mismatched dimensions: %d rows, %d targets", rows, len(y))
	}
	cols := len(X[0])
	if rows < cols {
		return nil, fmt.Errorf("ols: underdetermined system: %d rows for %d coefficients", rows, cols)
	}

	a := mat.NewDense(rows, cols, nil)
	for i, row := range X {
		if len(row) != cols {
			return nil, fmt.Errorf("ols: ragged row %d", i)
		}
		a.SetRow(i, row)
	}
	b := mat.NewVecDense(rows, y)

	var qr mat.QR
	qr.Factorize(a)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, b); err != nil {
		return nil, fmt.Errorf("ols: solve: %w", err)
	}

	out := make([]float64, cols)
	for i := range out {
		out[i] = beta.AtVec(i)
	}
	return out, nil
}

// residuals returns y - X*beta.
func residuals(X [][]float64, y, beta []float64) []float64 {
	out := make([]float64, len(y))
	for i, row := range X {
		pred := 0.0
		for j, v := range row {
			pred += v * beta[j]
		}
		out[i] = y[i] - pred
	}
	return out
}

// sumSquares returns the sum of squared entries.
func sumSquares(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		s += v * v
	}
	return s
}
