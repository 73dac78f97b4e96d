// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

// Shared Kalman filter and Rauch-Tung-Striebel smoother building blocks.

package goancil

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// One forward filter step kept for the backward pass
type kfStep struct {
	// Transition that produced the a priori state of this step from the previous step
	F *mat.Dense

	// State before the measurement, x_{k|k-1}, P_{k|k-1}
	xPri *mat.VecDense
	pPri *mat.Dense

	// State after the measurement, x_{k|k}, P_{k|k}
	xPost *mat.VecDense
	pPost *mat.Dense
}

// makeK calculates Kalman gain K = P H^T (H P H^T + R)^-1
func makeK(P, H, R mat.Matrix) (*mat.Dense, error) {
	var A, B, C, Ci, D, K mat.Dense
	A.Mul(H, P)
	B.Mul(&A, H.T())
	C.Add(&B, R)
	err := Ci.Inverse(&C)
	if err != nil {
		return nil, fmt.Errorf("%w: innovation covariance, %s", ErrSingular, err.Error())
	}
	D.Mul(P, H.T())
	K.Mul(&D, &Ci)
	return &K, nil
}

// updateX calculates x' = x + K (z - H x)
func updateX(x *mat.VecDense, K, H mat.Matrix, z mat.Vector) *mat.VecDense {
	var hx, dy, dx, x2 mat.VecDense
	hx.MulVec(H, x)
	dy.SubVec(z, &hx)
	dx.MulVec(K, &dy)
	x2.AddVec(x, &dx)
	return &x2
}

// updateP calculates P' = (I - K H) P
func updateP(K, H, P mat.Matrix) *mat.Dense {
	nx, _ := K.Dims()
	var A, B, C mat.Dense
	A.Mul(K, H)
	B.Sub(eye(nx), &A)
	C.Mul(&B, P)
	return &C
}

// predictP calculates P' = F P F^T + Q
func predictP(F, P, Q mat.Matrix) *mat.Dense {
	var A mat.Dense
	A.Product(F, P, F.T())
	A.Add(&A, Q)
	return &A
}

func eye(n int) *mat.Dense {
	I := mat.NewDense(n, n, nil)
	for j := range n {
		I.Set(j, j, 1)
	}
	return I
}

func diag(v ...float64) *mat.Dense {
	D := mat.NewDense(len(v), len(v), nil)
	for j, a := range v {
		D.Set(j, j, a)
	}
	return D
}

// rtsSmooth runs the backward pass over the forward history
// - C_k = P_{k|k} F_{k+1}^T P_{k+1|k}^-1
// - x_k^s = x_{k|k} + C_k (x_{k+1}^s - x_{k+1|k})
// - P_k^s = P_{k|k} + C_k (P_{k+1}^s - P_{k+1|k}) C_k^T
// The result is in forward time order.
func rtsSmooth(steps []kfStep) ([]*mat.VecDense, []*mat.Dense, error) {
	n := len(steps)
	if n == 0 {
		return nil, nil, nil
	}
	dims := steps[0].xPost.Len()

	// Collected from the last step back to the first
	xs := make([]*mat.VecDense, 0, n)
	ps := make([]*mat.Dense, 0, n)
	xs = append(xs, mat.VecDenseCopyOf(steps[n-1].xPost))
	ps = append(ps, mat.DenseCopyOf(steps[n-1].pPost))

	C := mat.NewDense(dims, dims, nil)
	pPriInv := mat.NewDense(dims, dims, nil)
	for k := n - 2; k >= 0; k-- {
		next := steps[k+1]
		err := pPriInv.Inverse(next.pPri)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: a priori covariance at step %d, %s", ErrSingular, k+1, err.Error())
		}
		C.Product(steps[k].pPost, next.F.T(), pPriInv)

		xsNext := xs[len(xs)-1]
		psNext := ps[len(ps)-1]

		var dxs, cdx mat.VecDense
		dxs.SubVec(xsNext, next.xPri)
		cdx.MulVec(C, &dxs)
		x := mat.NewVecDense(dims, nil)
		x.AddVec(steps[k].xPost, &cdx)

		var dps, cdp mat.Dense
		dps.Sub(psNext, next.pPri)
		cdp.Product(C, &dps, C.T())
		P := mat.NewDense(dims, dims, nil)
		P.Add(steps[k].pPost, &cdp)

		xs = append(xs, x)
		ps = append(ps, P)
	}

	slices.Reverse(xs)
	slices.Reverse(ps)
	return xs, ps, nil
}
