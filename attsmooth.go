// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.16
//

// Implements the per-axis Kalman smoother fusing quaternion angles with gyro rates.

package goancil

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AttSmoothOpt contains the settings of the attitude smoother
type AttSmoothOpt struct {
	Period       float64 // Output grid period [s]
	SigAngObs    float64 // Quaternion angle noise [rad]
	SigRateObs   float64 // Gyro rate noise [rad/s]
	SigRateProc  float64 // Attitude rate random walk [rad/s/sqrt(s)]
	SigDriftProc float64 // Gyro drift random walk [rad/s/sqrt(s)]
	SigAng0      float64 // Initial angle uncertainty [rad]
	SigRate0     float64 // Initial rate uncertainty [rad/s]
	SigDrift0    float64 // Initial drift uncertainty [rad/s]
	BadDataScale float64 // Observation sigma multiplier for invalid samples
}

// NewAttSmoothOpt creates a new AttSmoothOpt with default values
func NewAttSmoothOpt() *AttSmoothOpt {
	return &AttSmoothOpt{
		Period:       IMU_PERIOD,
		SigAngObs:    1.0e-5, // About 2 arcsec
		SigRateObs:   1.0e-5,
		SigRateProc:  1.0e-5,
		SigDriftProc: 1.0e-8,
		SigAng0:      1.0e-2,
		SigRate0:     1.0e-3,
		SigDrift0:    1.0e-4,
		BadDataScale: 1.0e6,
	}
}

// Smoothed attitude on the IMU grid
type SmoothedAttitude struct {
	Time  []float64 // [J2000 s]
	Angle []r3.Vec  // [rad]
	Rate  []r3.Vec  // [rad/s]
	Drift []r3.Vec  // Estimated gyro drift [rad/s]
}

func (p *SmoothedAttitude) Len() int {
	return len(p.Time)
}

// Measurements of one axis on the grid
type axisObs struct {
	rate    []float64
	rateOk  []bool
	hasAng  []bool
	angle   []float64
	angleOk []bool
}

func vecComp(v r3.Vec, j int) float64 {
	switch j {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setVecComp(v *r3.Vec, j int, a float64) {
	switch j {
	case 0:
		v.X = a
	case 1:
		v.Y = a
	default:
		v.Z = a
	}
}

// SmoothAttitude fuses quaternion angles and gyro rates on a uniform grid at opt.Period
//
// Gyro rates are integrated to angle, interpolated onto the grid and differenced back to rate.
// Quaternion angles are interpolated onto the grid steps nearest to each quaternion sample.
// Each axis then runs a forward filter over [angle, rate, drift] and an RTS backward pass.
func SmoothAttitude(qa *QuatAngles, ir *ImuRates, opt *AttSmoothOpt) (*SmoothedAttitude, error) {
	if ir.Len() < 2 {
		return nil, fmt.Errorf("%w: %d gyro samples", ErrNoValidData, ir.Len())
	}
	if qa.Len() == 0 {
		return nil, fmt.Errorf("%w: no quaternion angles", ErrNoValidData)
	}
	P := opt.Period
	g0 := ir.Time[0]
	n := int(math.Floor((ir.Time[ir.Len()-1]-g0)/P+1e-6)) + 1
	if n < 2 {
		return nil, fmt.Errorf("%w: gyro span shorter than one grid period", ErrNoValidData)
	}

	obs := syncAttObs(qa, ir, g0, n, P)

	sm := &SmoothedAttitude{
		Time:  make([]float64, n),
		Angle: make([]r3.Vec, n),
		Rate:  make([]r3.Vec, n),
		Drift: make([]r3.Vec, n),
	}
	for j := range n {
		sm.Time[j] = g0 + float64(j)*P
	}
	for ax := range 3 {
		xs, err := smoothAxis(&obs[ax], P, opt)
		if err != nil {
			return nil, fmt.Errorf("smoothAxis() failed for axis %d, err= %w", ax, err)
		}
		for j, x := range xs {
			setVecComp(&sm.Angle[j], ax, x.AtVec(0))
			setVecComp(&sm.Rate[j], ax, x.AtVec(1))
			setVecComp(&sm.Drift[j], ax, x.AtVec(2))
		}
	}
	return sm, nil
}

// Bring the gyro and quaternion measurements onto the grid g0 + j*P
func syncAttObs(qa *QuatAngles, ir *ImuRates, g0 float64, n int, P float64) [3]axisObs {
	var obs [3]axisObs
	for ax := range 3 {
		obs[ax] = axisObs{
			rate:    make([]float64, n),
			rateOk:  make([]bool, n),
			hasAng:  make([]bool, n),
			angle:   make([]float64, n),
			angleOk: make([]bool, n),
		}
	}

	// Cumulative gyro angle; invalid rates contribute nothing
	m := ir.Len()
	ts := make([]float64, m)
	var cum [3][]float64
	for ax := range 3 {
		cum[ax] = make([]float64, m)
	}
	for i := range m {
		ts[i] = ir.Time[i] - g0
		if i == 0 {
			continue
		}
		dt := ir.Time[i] - ir.Time[i-1]
		for ax := range 3 {
			d := 0.0
			if ir.Valid[i] {
				d = vecComp(ir.Rate[i], ax) * dt
			}
			cum[ax][i] = cum[ax][i-1] + d
		}
	}
	for ax := range 3 {
		var prev float64
		var prevOk bool
		for j := range n {
			a, ok := InterpValid(ts, cum[ax], ir.Valid, float64(j)*P, NLAG)
			if j > 0 {
				obs[ax].rate[j] = (a - prev) / P
				obs[ax].rateOk[j] = ok && prevOk
			}
			prev, prevOk = a, ok
		}
		obs[ax].rate[0] = obs[ax].rate[1]
		obs[ax].rateOk[0] = obs[ax].rateOk[1]
	}

	// Quaternion angles at the grid steps they fall on
	qts := make([]float64, qa.Len())
	var qang [3][]float64
	for ax := range 3 {
		qang[ax] = make([]float64, qa.Len())
	}
	for k := range qa.Len() {
		qts[k] = qa.Time[k] - g0
		for ax := range 3 {
			qang[ax][k] = vecComp(qa.Angle[k], ax)
		}
	}
	for k := range qa.Len() {
		j := int(math.Round(qts[k] / P))
		if j < 0 || j >= n {
			continue
		}
		for ax := range 3 {
			a, ok := InterpValid(qts, qang[ax], qa.Valid, float64(j)*P, NLAG)
			obs[ax].hasAng[j] = true
			obs[ax].angle[j] = a
			obs[ax].angleOk[j] = ok
		}
	}
	return obs
}

// Forward filter and RTS pass of one axis; the history is local to the call
func smoothAxis(o *axisObs, dt float64, opt *AttSmoothOpt) ([]*mat.VecDense, error) {
	n := len(o.rate)
	sr, sd := SQ(opt.SigRateProc), SQ(opt.SigDriftProc)
	Q := mat.NewDense(3, 3, []float64{
		sr * dt * dt * dt / 3, sr * dt * dt / 2, 0,
		sr * dt * dt / 2, sr * dt, 0,
		0, 0, sd * dt,
	})
	F := mat.NewDense(3, 3, []float64{
		1, dt, 0,
		0, 1, 0,
		0, 0, 1,
	})
	H2 := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0, 1, 1,
	})
	H1 := mat.NewDense(1, 3, []float64{0, 1, 1})

	sigma := func(s float64, ok bool) float64 {
		if ok {
			return s
		}
		return s * opt.BadDataScale
	}

	// Start from the first good angle, if any
	a0 := 0.0
	for j := range n {
		if o.hasAng[j] && o.angleOk[j] {
			a0 = o.angle[j]
			break
		}
	}

	steps := make([]kfStep, n)
	for j := range n {
		st := &steps[j]
		if j == 0 {
			st.F = eye(3)
			st.xPri = mat.NewVecDense(3, []float64{a0, o.rate[0], 0})
			st.pPri = diag(SQ(opt.SigAng0), SQ(opt.SigRate0), SQ(opt.SigDrift0))
		} else {
			prev := &steps[j-1]
			st.F = F
			st.xPri = mat.NewVecDense(3, nil)
			st.xPri.MulVec(F, prev.xPost)
			st.pPri = predictP(F, prev.pPost, Q)
		}

		sg := sigma(opt.SigRateObs, o.rateOk[j])
		var H, R *mat.Dense
		var z *mat.VecDense
		if o.hasAng[j] {
			sa := sigma(opt.SigAngObs, o.angleOk[j])
			H = H2
			R = diag(SQ(sa), SQ(sg))
			z = mat.NewVecDense(2, []float64{o.angle[j], o.rate[j]})
		} else {
			H = H1
			R = diag(SQ(sg))
			z = mat.NewVecDense(1, []float64{o.rate[j]})
		}
		K, err := makeK(st.pPri, H, R)
		if err != nil {
			return nil, fmt.Errorf("makeK() failed at step %d, err= %w", j, err)
		}
		st.xPost = updateX(st.xPri, K, H, z)
		st.pPost = updateP(K, H, st.pPri)
	}

	xs, _, err := rtsSmooth(steps)
	if err != nil {
		return nil, fmt.Errorf("rtsSmooth() failed, err= %w", err)
	}
	return xs, nil
}
