// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.6
//

package goancil

import (
	"golang.org/x/exp/slices"
)

// Start index of the n interpolation points around t
// - Find the bracket ts[i] <= t < ts[i+1], then center the window on it
func LagrangeStart(ts []float64, t float64, n int) int {
	if len(ts) <= n {
		return 0
	}
	i, found := slices.BinarySearch(ts, t)
	if !found {
		i-- // ts[i] < t < ts[i+1]
	}
	s := i - (n-1)/2
	if s < 0 {
		s = 0
	}
	if s > len(ts)-n {
		s = len(ts) - n
	}
	return s
}

// Lagrange polynomial through (xs[k], ys[k]) evaluated at x
func Lagrange(xs, ys []float64, x float64) float64 {
	sum := 0.0
	for i := range xs {
		w := 1.0
		for j := range xs {
			if i != j {
				w *= (x - xs[j]) / (xs[i] - xs[j])
			}
		}
		sum += w * ys[i]
	}
	return sum
}

// Interpolate ys at t using the n points nearest to t
func Interp(ts, ys []float64, t float64, n int) float64 {
	n = min(n, len(ts))
	s := LagrangeStart(ts, t, n)
	return Lagrange(ts[s:s+n], ys[s:s+n], t)
}

// Interpolate ys at t; the result is valid only if every supporting point is valid
func InterpValid(ts, ys []float64, valid []bool, t float64, n int) (float64, bool) {
	n = min(n, len(ts))
	s := LagrangeStart(ts, t, n)
	ok := true
	for _, v := range valid[s : s+n] {
		ok = ok && v
	}
	return Lagrange(ts[s:s+n], ys[s:s+n], t), ok
}
