// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.5
//

package goancil

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Inertial acceleration of the point-mass + J2 Earth gravity field at r [m]
func Gravity(r r3.Vec, cp *CalParams) r3.Vec {
	r2 := r.X*r.X + r.Y*r.Y + r.Z*r.Z
	if r2 <= 0 {
		return r3.Vec{}
	}
	rc := r2 * math.Sqrt(r2)
	a := 1.5 * cp.J2 * cp.Mu * (cp.Re * cp.Re) / r2 / rc
	b := 5.0 * r.Z * r.Z / r2
	c := -cp.Mu/rc - a*(1.0-b)
	return r3.Vec{
		X: c * r.X,
		Y: c * r.Y,
		Z: (c - 2.0*a) * r.Z,
	}
}

// One constant-acceleration step: acceleration is evaluated once at the start position
func StepConstAcc(r, v r3.Vec, dt float64, cp *CalParams) (r3.Vec, r3.Vec) {
	acc := Gravity(r, cp)
	rn := r3.Add(r, r3.Add(r3.Scale(dt, v), r3.Scale(0.5*dt*dt, acc)))
	vn := r3.Add(v, r3.Scale(dt, acc))
	return rn, vn
}

// Propagate over dt in nstep constant-acceleration sub-steps, re-evaluating gravity each time
func Propagate(r, v r3.Vec, dt float64, nstep int, cp *CalParams) (r3.Vec, r3.Vec) {
	if nstep < 1 {
		nstep = 1
	}
	h := dt / float64(nstep)
	for range nstep {
		r, v = StepConstAcc(r, v, h, cp)
	}
	return r, v
}
