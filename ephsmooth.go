// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Implements the fixed-interval Kalman smoother of the ECI ephemeris.

package goancil

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// EphSmoothOpt contains the noise settings of the ephemeris smoother
type EphSmoothOpt struct {
	SigPosProc float64 // Position process noise [m]
	SigVelProc float64 // Velocity process noise [m/s]
	SigPosObs  float64 // Position observation noise [m]
	SigVelObs  float64 // Velocity observation noise [m/s]
	SigPos0    float64 // Initial position uncertainty [m]
	SigVel0    float64 // Initial velocity uncertainty [m/s]
	SubSteps   int     // Gravity propagation sub-steps per interval
}

// NewEphSmoothOpt creates a new EphSmoothOpt with default values
func NewEphSmoothOpt() *EphSmoothOpt {
	return &EphSmoothOpt{
		SigPosProc: 0.1,   // [m]
		SigVelProc: 0.001, // [m/s]
		SigPosObs:  5.0,   // GPS navigation solution [m]
		SigVelObs:  0.05,  // [m/s]
		SigPos0:    100.0, // [m]
		SigVel0:    1.0,   // [m/s]
		SubSteps:   EPH_SUBSTEP,
	}
}

// Constant-velocity transition for dt
func ephTransition(dt float64) *mat.Dense {
	F := eye(6)
	for j := range 3 {
		F.Set(j, j+3, dt)
	}
	return F
}

func ephState(r, v r3.Vec) *mat.VecDense {
	return mat.NewVecDense(6, []float64{r.X, r.Y, r.Z, v.X, v.Y, v.Z})
}

// SmoothEphemeris runs a forward Kalman filter and a backward RTS pass over the resampled ephemeris
//
// The state is the ECI position and velocity. The observation matrix is the identity.
// Prediction integrates the Earth gravity in SubSteps constant-acceleration steps.
func SmoothEphemeris(in *EphSeries, cp *CalParams, opt *EphSmoothOpt) (*EphSeries, error) {
	n := in.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty ephemeris series", ErrNoValidData)
	}

	sp, sv := SQ(opt.SigPosProc), SQ(opt.SigVelProc)
	Q := diag(sp, sp, sp, sv, sv, sv)
	op, ov := SQ(opt.SigPosObs), SQ(opt.SigVelObs)
	R := diag(op, op, op, ov, ov, ov)
	ip, iv := SQ(opt.SigPos0), SQ(opt.SigVel0)
	H := eye(6)

	// Forward pass; history lives only for this call
	steps := make([]kfStep, n)
	for k, e := range in.Samples {
		st := &steps[k]
		if k == 0 {
			st.F = eye(6)
			st.xPri = ephState(e.EciPos, e.EciVel)
			st.pPri = diag(ip, ip, ip, iv, iv, iv)
		} else {
			prev := &steps[k-1]
			dt := e.T - in.Samples[k-1].T
			st.F = ephTransition(dt)
			x := prev.xPost
			r, v := Propagate(r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, r3.Vec{X: x.AtVec(3), Y: x.AtVec(4), Z: x.AtVec(5)}, dt, opt.SubSteps, cp)
			st.xPri = ephState(r, v)
			st.pPri = predictP(st.F, prev.pPost, Q)
		}

		K, err := makeK(st.pPri, H, R)
		if err != nil {
			return nil, fmt.Errorf("makeK() failed at %s, err= %w", EpochFromJ2000(in.Time(k)).String(), err)
		}
		st.xPost = updateX(st.xPri, K, H, ephState(e.EciPos, e.EciVel))
		st.pPost = updateP(K, H, st.pPri)
		if DBG_ >= 2 {
			dr := r3.Sub(e.EciPos, r3.Vec{X: st.xPri.AtVec(0), Y: st.xPri.AtVec(1), Z: st.xPri.AtVec(2)})
			PrintB(in.Time(k), "position innovation %.3f m\n", r3.Norm(dr))
		}
	}

	xs, ps, err := rtsSmooth(steps)
	if err != nil {
		return nil, fmt.Errorf("rtsSmooth() failed, err= %w", err)
	}

	out := &EphSeries{
		Epoch:   in.Epoch,
		Period:  in.Period,
		Samples: make([]EphSample, n),
	}
	t0 := in.Epoch.J2000()
	for k, x := range xs {
		o := &out.Samples[k]
		o.T = in.Samples[k].T
		o.EciPos = r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
		o.EciVel = r3.Vec{X: x.AtVec(3), Y: x.AtVec(4), Z: x.AtVec(5)}
		o.EcefPos, o.EcefVel = EciToEcef(t0+o.T, o.EciPos, o.EciVel)
	}
	if DBG_ >= 3 {
		PrintA("ephemeris smoother: final covariance\n")
		PrintMat(ps[n-1])
	}
	return out, nil
}
