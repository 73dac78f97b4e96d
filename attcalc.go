// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.15
//

// Converts quaternions and gyro registers into roll/pitch/yaw angles and rates.

package goancil

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Roll/pitch/yaw derived from the attitude quaternions
type QuatAngles struct {
	Time  []float64 // [J2000 s]
	Angle []r3.Vec  // Roll, pitch, yaw [rad]
	Valid []bool
	Ref   r3.Vec // Mean attitude over the valid samples [rad]
}

func (p *QuatAngles) Len() int {
	return len(p.Time)
}

// Body rates derived from the gyro registers
type ImuRates struct {
	Time  []float64 // [J2000 s]
	Rate  []r3.Vec  // Roll, pitch, yaw rates [rad/s]
	Valid []bool
}

func (p *ImuRates) Len() int {
	return len(p.Time)
}

// Body-to-reference rotation: body-to-orbit for Earth acquisitions, body-to-ECI otherwise
func bodyToRef(bi Mat3, t float64, eph *EphInterp, acq AcqType) Mat3 {
	if acq.IsCelestial() {
		return bi
	}
	r, v := eph.At(t)
	return OrbitFrame(r, v).Mul(bi)
}

// QuatToAngles converts the windowed quaternions to roll/pitch/yaw
//
// Angles are unwrapped sample to sample, invalid samples are bridged linearly between
// valid neighbours (zero at the ends), and the mean of the valid samples is kept as the
// attitude reference.
func QuatToAngles(buf *QuatBuffer, eph *EphInterp, acq AcqType) (*QuatAngles, error) {
	n := buf.Len()
	qa := &QuatAngles{
		Time:  make([]float64, n),
		Angle: make([]r3.Vec, n),
		Valid: make([]bool, n),
	}
	copy(qa.Time, buf.Time)
	copy(qa.Valid, buf.Valid)

	last := -1
	for i := range n {
		if !qa.Valid[i] {
			continue
		}
		a := MatToEuler(bodyToRef(QuatToMat(buf.Q[i]), buf.Time[i], eph, acq))
		if last >= 0 {
			p := qa.Angle[last]
			a = r3.Vec{
				X: p.X + WrapPi(a.X-p.X),
				Y: p.Y + WrapPi(a.Y-p.Y),
				Z: p.Z + WrapPi(a.Z-p.Z),
			}
		}
		qa.Angle[i] = a
		last = i
	}
	if last < 0 {
		return nil, fmt.Errorf("%w: no valid quaternion to convert", ErrNoValidData)
	}

	fillInvalid(qa.Time, qa.Angle, qa.Valid)

	var xs, ys, zs []float64
	for i := range n {
		if qa.Valid[i] {
			xs = append(xs, qa.Angle[i].X)
			ys = append(ys, qa.Angle[i].Y)
			zs = append(zs, qa.Angle[i].Z)
		}
	}
	qa.Ref = r3.Vec{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil), Z: stat.Mean(zs, nil)}
	PrintD(1, "attitude reference: roll %.6f, pitch %.6f, yaw %.6f [deg]\n", ToDeg(qa.Ref.X), ToDeg(qa.Ref.Y), ToDeg(qa.Ref.Z))
	return qa, nil
}

// Linear interpolation over invalid samples between valid neighbours, zero where a neighbour is missing
func fillInvalid(ts []float64, a []r3.Vec, valid []bool) {
	prev := -1
	for i := 0; i < len(ts); i++ {
		if valid[i] {
			prev = i
			continue
		}
		next := i + 1
		for next < len(ts) && !valid[next] {
			next++
		}
		for k := i; k < next; k++ {
			if prev < 0 || next >= len(ts) {
				a[k] = r3.Vec{}
				continue
			}
			w := (ts[k] - ts[prev]) / (ts[next] - ts[prev])
			a[k] = r3.Add(a[prev], r3.Scale(w, r3.Sub(a[next], a[prev])))
		}
		i = next - 1
	}
}

// ImuToRates differences the windowed gyro registers into rates
//
// Gyro data is not used for celestial acquisitions: every rate is marked invalid.
func ImuToRates(buf *ImuBuffer, acq AcqType) (*ImuRates, error) {
	n := buf.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d IMU samples, need at least 2", ErrNoValidData, n)
	}
	ir := &ImuRates{
		Time:  make([]float64, n),
		Rate:  make([]r3.Vec, n),
		Valid: make([]bool, n),
	}
	copy(ir.Time, buf.Time)
	for i := range n {
		j, k := i-1, i
		if i == 0 {
			j, k = 0, 1
		}
		dt := buf.Time[k] - buf.Time[j]
		if dt <= 0 {
			PrintW("non-increasing IMU time at %s\n", EpochFromJ2000(buf.Time[k]).String())
			continue
		}
		ir.Rate[i] = r3.Scale(1/dt, r3.Sub(buf.Data[k], buf.Data[j]))
		ir.Valid[i] = buf.Valid[j] && buf.Valid[k] && !acq.IsCelestial()
	}
	return ir, nil
}

// RemoveOrbitalMotion converts gyro rates to body-to-orbit attitude rates in place
//
// The registers count the rotation of the body frame, so the sign is flipped. For Earth
// acquisitions the rotation of the orbital frame between consecutive samples, seen from the
// reference attitude, is removed as well.
func RemoveOrbitalMotion(ir *ImuRates, eph *EphInterp, ref r3.Vec, acq AcqType) {
	if acq.IsCelestial() {
		for i := range ir.Rate {
			ir.Rate[i] = r3.Scale(-1, ir.Rate[i])
		}
		return
	}

	// Inertial to nominal body
	refT := EulerToMat(ref).T()
	frame := func(t float64) Mat3 {
		r, v := eph.At(t)
		return refT.Mul(OrbitFrame(r, v))
	}

	n := ir.Len()
	prev := frame(ir.Time[0])
	var w r3.Vec
	for i := range n {
		if i > 0 {
			cur := frame(ir.Time[i])
			w = r3.Scale(1/(ir.Time[i]-ir.Time[i-1]), SmallRotation(prev, cur))
			prev = cur
		} else {
			next := frame(ir.Time[1])
			w = r3.Scale(1/(ir.Time[1]-ir.Time[0]), SmallRotation(prev, next))
		}
		ir.Rate[i] = r3.Sub(r3.Scale(-1, ir.Rate[i]), w)
	}
}

// AttitudeQuaternions fills the ECI and ECEF body quaternions of each sample from its angles
func AttitudeQuaternions(att *AttSeries, eph *EphInterp, acq AcqType) {
	t0 := att.Epoch.J2000()
	for i := range att.Samples {
		s := &att.Samples[i]
		t := t0 + s.T
		bi := EulerToMat(s.Angle)
		if !acq.IsCelestial() {
			r, v := eph.At(t)
			bi = OrbitFrame(r, v).T().Mul(bi)
		}
		s.QuatEci = MatToQuat(bi)
		s.QuatEcef = MatToQuat(EciToEcefMat(t).Mul(bi))
	}
}
