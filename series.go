// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.11
//

package goancil

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ephemeris state at one time (T is seconds from the series epoch)
type EphSample struct {
	T       float64
	EciPos  r3.Vec
	EciVel  r3.Vec
	EcefPos r3.Vec
	EcefVel r3.Vec
}

// Uniformly sampled ephemeris
type EphSeries struct {
	Epoch   Epoch
	Period  float64
	Samples []EphSample
}

func (s *EphSeries) Len() int {
	return len(s.Samples)
}

// J2000 time of sample i
func (s *EphSeries) Time(i int) float64 {
	return s.Epoch.J2000() + s.Samples[i].T
}

func (s *EphSeries) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ephemeris: epoch %s, period %.3f s, %d samples\n", s.Epoch.String(), s.Period, s.Len()))
	if s.Len() > 0 {
		n := s.Len() - 1
		sb.WriteString(fmt.Sprintf("\t%s - %s\n", EpochFromJ2000(s.Time(0)).String(), EpochFromJ2000(s.Time(n)).String()))
		// Sub-satellite points [deg deg km]
		p0, p1 := EcefToLLH(s.Samples[0].EcefPos), EcefToLLH(s.Samples[n].EcefPos)
		sb.WriteString(fmt.Sprintf("\tfrom %s to %s\n", p0.String(), p1.String()))
	}
	return sb.String()
}

// EphInterp evaluates the ECI state of a series at arbitrary times
type EphInterp struct {
	t0  float64
	ts  []float64
	val [6][]float64
}

func NewEphInterp(s *EphSeries) *EphInterp {
	n := s.Len()
	p := &EphInterp{
		t0: s.Epoch.J2000(),
		ts: make([]float64, n),
	}
	for j := range 6 {
		p.val[j] = make([]float64, n)
	}
	for i, e := range s.Samples {
		p.ts[i] = e.T
		p.val[0][i], p.val[1][i], p.val[2][i] = e.EciPos.X, e.EciPos.Y, e.EciPos.Z
		p.val[3][i], p.val[4][i], p.val[5][i] = e.EciVel.X, e.EciVel.Y, e.EciVel.Z
	}
	return p
}

// ECI position and velocity at J2000 time t
func (p *EphInterp) At(t float64) (r, v r3.Vec) {
	tr := t - p.t0
	n := min(NLAG, len(p.ts))
	s := LagrangeStart(p.ts, tr, n)
	var x [6]float64
	for j := range 6 {
		x[j] = Lagrange(p.ts[s:s+n], p.val[j][s:s+n], tr)
	}
	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}, r3.Vec{X: x[3], Y: x[4], Z: x[5]}
}

// Attitude state at one time (T is seconds from the series epoch)
type AttSample struct {
	T        float64
	Angle    r3.Vec      // Roll, pitch, yaw [rad]
	Rate     r3.Vec      // Roll, pitch, yaw rates [rad/s]
	QuatEci  quat.Number // Body-to-ECI
	QuatEcef quat.Number // Body-to-ECEF
}

// Uniformly sampled attitude
type AttSeries struct {
	Epoch   Epoch
	Period  float64
	Samples []AttSample
}

func (s *AttSeries) Len() int {
	return len(s.Samples)
}

// J2000 time of sample i
func (s *AttSeries) Time(i int) float64 {
	return s.Epoch.J2000() + s.Samples[i].T
}

func (s *AttSeries) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("attitude: epoch %s, period %.3f s, %d samples\n", s.Epoch.String(), s.Period, s.Len()))
	if s.Len() > 0 {
		sb.WriteString(fmt.Sprintf("\t%s - %s\n", EpochFromJ2000(s.Time(0)).String(), EpochFromJ2000(s.Time(s.Len()-1)).String()))
	}
	return sb.String()
}
