// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package goancil

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve the observation equation using weighted least squares
// - dx = (G^t W G)^-1 G^t W dr
// - Return the error covariance matrix (G^t W G)^-1 as cov
func SolveLS(G mat.Matrix, dr mat.Vector, W mat.Matrix) (dx mat.Vector, cov mat.Matrix, err error) {

	n1, m1 := G.Dims()
	n2, m2 := W.Dims()
	if n1 != n2 {
		return nil, nil, fmt.Errorf("invalid matrix size. G^T(%d x %d), W(%d x %d)", m1, n1, n2, m2)
	}
	l1 := dr.Len()
	if l1 != m2 {
		return nil, nil, fmt.Errorf("invalid matrix size. W(%d x %d), dr(%d x 1)", n2, m2, l1)
	}

	// A (G^t W G)
	var WG mat.Dense
	WG.Mul(W, G)
	var A mat.Dense
	A.Mul(G.T(), &WG)

	// b (G^t W dr)
	var GtW mat.Dense
	GtW.Mul(G.T(), W)
	var b mat.VecDense
	b.MulVec(&GtW, dr)

	// Solve for x (x = A^-1 b)
	var x mat.VecDense
	err = x.SolveVec(&A, &b)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSingular, err.Error())
	}
	dx = &x

	// Set (G^T W G)^-1 as the covariance matrix
	var c mat.Dense
	err = c.Inverse(&A)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSingular, err.Error())
	}
	cov = &c

	return
}

// Fit t = a + b k over sample indices k with weights w (nil for unit weights);
// returns (a, b) and the residuals t - (a + b k) of every sample
func FitLine(ks, ts, w []float64) (a, b float64, res []float64, err error) {
	n := len(ks)
	if n < 2 {
		return 0, 0, nil, fmt.Errorf("at least 2 points are needed for a line fit, got %d", n)
	}
	G := mat.NewDense(n, 2, nil)
	for i, k := range ks {
		G.Set(i, 0, 1)
		G.Set(i, 1, k)
	}
	W := mat.NewDiagDense(n, nil)
	for i := range n {
		if w == nil {
			W.SetDiag(i, 1)
		} else {
			W.SetDiag(i, w[i])
		}
	}
	dx, _, err := SolveLS(G, mat.NewVecDense(n, ts), W)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("SolveLS() failed, err= %w", err)
	}
	a, b = dx.AtVec(0), dx.AtVec(1)
	res = make([]float64, n)
	for i := range n {
		res[i] = ts[i] - (a + b*ks[i])
	}
	return
}

// Fit t = a + b k leaving out samples farther than tol from the line
// - Each pass zero-weights the samples above max(tol, half the largest residual) and refits
// - Returns the final fit, the residuals of every sample and the mask of samples kept in the fit
func RobustFitLine(ks, ts []float64, tol float64) (a, b float64, res []float64, in []bool, err error) {
	n := len(ks)
	w := make([]float64, n)
	in = make([]bool, n)
	for i := range n {
		w[i] = 1
		in[i] = true
	}
	for {
		a, b, res, err = FitLine(ks, ts, w)
		if err != nil {
			return 0, 0, nil, nil, err
		}
		worst := 0.0
		for i := range n {
			if in[i] {
				worst = max(worst, math.Abs(res[i]))
			}
		}
		if worst <= tol {
			return
		}

		lim := max(tol, worst/2)
		drop := 0
		left := 0
		for i := range n {
			if in[i] {
				left++
				if math.Abs(res[i]) >= lim {
					drop++
				}
			}
		}
		if left-drop < 2 {
			return 0, 0, nil, nil, fmt.Errorf("%w: no consistent line through %d samples within %g", ErrSingular, n, tol)
		}
		for i := range n {
			if in[i] && math.Abs(res[i]) >= lim {
				in[i] = false
				w[i] = 0
			}
		}
	}
}
