// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package goancil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveLS(t *testing.T) {
	// y = 1 + 2x with one heavily weighted point
	G := mat.NewDense(3, 2, []float64{1, 0, 1, 1, 1, 2})
	dr := mat.NewVecDense(3, []float64{1, 3, 5})
	W := mat.NewDiagDense(3, []float64{1, 100, 1})

	dx, cov, err := SolveLS(G, dr, W)
	require.NoError(t, err)
	require.InDelta(t, 1, dx.AtVec(0), 1e-12)
	require.InDelta(t, 2, dx.AtVec(1), 1e-12)
	r, c := cov.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)

	_, _, err = SolveLS(G, mat.NewVecDense(2, []float64{1, 2}), W)
	require.Error(t, err)
	_, _, err = SolveLS(G, dr, mat.NewDiagDense(2, nil))
	require.Error(t, err)
}

func TestFitLine(t *testing.T) {
	ks := []float64{0, 1, 2, 3, 5}
	ts := []float64{100, 101, 102, 103.5, 105}

	a, b, res, err := FitLine(ks, ts, nil)
	require.NoError(t, err)
	require.Len(t, res, len(ks))
	for i := range ks {
		require.InDelta(t, ts[i], a+b*ks[i]+res[i], 1e-9)
	}
	// The glitch stands out
	for i, r := range res {
		if i != 3 {
			require.Less(t, r*r, res[3]*res[3])
		}
	}

	_, _, _, err = FitLine([]float64{1}, []float64{1}, nil)
	require.Error(t, err)

	// All samples at the same index
	_, _, _, err = FitLine([]float64{2, 2, 2}, []float64{1, 2, 3}, nil)
	require.ErrorIs(t, err, ErrSingular)
}

func TestFitLineWeights(t *testing.T) {
	ks := []float64{0, 1, 2, 3, 4}
	ts := []float64{10, 12, 14, 50, 18}

	// The zero-weighted sample does not pull the line
	a, b, res, err := FitLine(ks, ts, []float64{1, 1, 1, 0, 1})
	require.NoError(t, err)
	require.InDelta(t, 10, a, 1e-9)
	require.InDelta(t, 2, b, 1e-9)
	require.InDelta(t, 34, res[3], 1e-9)
}

func TestRobustFitLine(t *testing.T) {
	// 1 s tags with a 0.4 s glitch at index 12 and one at index 30
	n := 40
	ks := make([]float64, n)
	ts := make([]float64, n)
	for i := range n {
		ks[i] = float64(i)
		ts[i] = 5 + float64(i)
	}
	ts[12] += 0.4
	ts[30] -= 0.35

	a, b, res, in, err := RobustFitLine(ks, ts, 0.1)
	require.NoError(t, err)
	require.InDelta(t, 5, a, 1e-9)
	require.InDelta(t, 1, b, 1e-9)
	require.InDelta(t, 0.4, res[12], 1e-9)
	require.InDelta(t, -0.35, res[30], 1e-9)
	for i := range n {
		require.Equal(t, i != 12 && i != 30, in[i], "sample %d", i)
	}

	// The plain fit leaks the glitch into its neighbours
	a, b, _, err = FitLine(ks, ts, nil)
	require.NoError(t, err)
	require.Greater(t, math.Abs(a-5)+math.Abs(b-1), 1e-3)

	_, _, _, _, err = RobustFitLine([]float64{2, 2, 2}, []float64{1, 2, 3}, 0.1)
	require.ErrorIs(t, err, ErrSingular)
}
