// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package goancil

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// 2025/05/03 01:00:00 UTC
var testT0 = (&Epoch{Year: 2025, Doy: 123, Sod: 3600}).J2000()

// Calibration parameters without J2, so circular Kepler orbits are exact
func testCalParams() *CalParams {
	cp := NewCalParams()
	cp.J2 = 0
	return cp
}

// Circular orbit in ECI
type testOrbit struct {
	r0   float64
	n    float64
	inc  float64
	raan float64
	t0   float64
}

func newTestOrbit(cp *CalParams, t0 float64) *testOrbit {
	return &testOrbit{
		r0:   cp.OrbitRadius,
		n:    math.Sqrt(cp.Mu / (cp.OrbitRadius * cp.OrbitRadius * cp.OrbitRadius)),
		inc:  ToRad(98.2),
		raan: 0.3,
		t0:   t0,
	}
}

func (o *testOrbit) eci(t float64) (r, v r3.Vec) {
	u := o.n * (t - o.t0)
	m := RotZ(o.raan).Mul(RotX(o.inc))
	r = m.MulVec(r3.Vec{X: o.r0 * math.Cos(u), Y: o.r0 * math.Sin(u)})
	v = m.MulVec(r3.Vec{X: -o.r0 * o.n * math.Sin(u), Y: o.r0 * o.n * math.Cos(u)})
	return
}

// Uniform ECI series of the orbit
func (o *testOrbit) series(t0 float64, n int, period float64) *EphSeries {
	es := &EphSeries{
		Epoch:   *EpochFromJ2000(t0),
		Period:  period,
		Samples: make([]EphSample, n),
	}
	for i := range n {
		t := t0 + float64(i)*period
		e := &es.Samples[i]
		e.T = float64(i) * period
		e.EciPos, e.EciVel = o.eci(t)
		e.EcefPos, e.EcefVel = EciToEcef(t, e.EciPos, e.EciVel)
	}
	return es
}

// Raw ephemeris records at 1 Hz
func (o *testOrbit) ephRecords(t0 float64, n int) []RawEphRecord {
	recs := make([]RawEphRecord, n)
	for i := range n {
		t := t0 + float64(i)*EPH_PERIOD
		r, v := o.eci(t)
		re, ve := EciToEcef(t, r, v)
		recs[i] = RawEphRecord{Time: t, EcefPos: re, EcefVel: ve}
	}
	return recs
}

// Small zero-mean attitude motion relative to the reference frame
func testAngle(t float64) r3.Vec {
	w := 2 * PI / 60
	dt := t - testT0
	return r3.Vec{
		X: 1.0e-3 * math.Sin(w*dt),
		Y: 5.0e-4 * math.Sin(2*w*dt),
		Z: 2.0e-4 * math.Sin(0.5*w*dt),
	}
}

// Telemetry of a steadily pointing spacecraft over [t0, t0+dur]
func genTelemetry(o *testOrbit, t0, dur float64, acq AcqType) *Telemetry {
	tlm := &Telemetry{
		Acq:   acq,
		Start: *EpochFromJ2000(t0),
		Stop:  *EpochFromJ2000(t0 + dur),
	}
	tlm.Eph = o.ephRecords(t0, int(dur/EPH_PERIOD)+1)

	nq := (int(math.Round(dur/QUAT_PERIOD))/QUAT_PER_RECORD + 1) * QUAT_PER_RECORD
	tlm.Quat = make([]RawQuatRecord, nq)
	for k := range nq {
		t := t0 + float64(k)*QUAT_PERIOD
		bi := EulerToMat(testAngle(t))
		if !acq.IsCelestial() {
			r, v := o.eci(t)
			bi = OrbitFrame(r, v).T().Mul(bi)
		}
		tlm.Quat[k] = RawQuatRecord{Time: t, Q: MatToQuat(bi)}
	}

	// Registers count the frame rotation: minus the attitude change minus the orbital pitch-down
	a0 := testAngle(t0)
	recT := float64(IMU_PER_RECORD) * IMU_PERIOD
	nr := int(math.Round(dur/recT)) + 1
	tlm.Imu = make([]RawImuRecord, nr)
	for j := range nr {
		rt := t0 + float64(j)*recT
		rec := RawImuRecord{Time: rt, Samples: make([]RawImuSample, IMU_PER_RECORD)}
		for k := range IMU_PER_RECORD {
			cnt := int64(k) * int64(math.Round(IMU_PERIOD/1.0e-3))
			t := rt + float64(cnt)*1.0e-3
			da := r3.Sub(testAngle(t), a0)
			rec.Samples[k] = RawImuSample{
				Count: cnt,
				Angle: r3.Vec{X: -da.X, Y: -da.Y + o.n*(t-t0), Z: -da.Z},
			}
		}
		tlm.Imu[j] = rec
	}
	return tlm
}

// Quaternion buffer of nrec records with identical unit quaternions
func genQuatBuffer(nrec int, t0 float64) *QuatBuffer {
	recs := make([]RawQuatRecord, nrec*QUAT_PER_RECORD)
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	for k := range recs {
		recs[k] = RawQuatRecord{Time: t0 + float64(k)*QUAT_PERIOD, Q: q}
	}
	return NewQuatBuffer(recs)
}

// Drop the samples [s, e) from a quaternion record list
func dropQuat(recs []RawQuatRecord, s, e int) []RawQuatRecord {
	out := make([]RawQuatRecord, 0, len(recs)-(e-s))
	out = append(out, recs[:s]...)
	return append(out, recs[e:]...)
}
