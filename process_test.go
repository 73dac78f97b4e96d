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

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Largest angle error against the generated attitude, skipping the first and last seconds
func maxAttError(att *AttSeries) float64 {
	e := 0.0
	t0, t1 := att.Time(0)+1, att.Time(att.Len()-1)-1
	for i := range att.Samples {
		t := att.Time(i)
		if t < t0 || t > t1 {
			continue
		}
		e = math.Max(e, r3.Norm(r3.Sub(testAngle(t), att.Samples[i].Angle)))
	}
	return e
}

func TestProcessEarth(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	tlm := genTelemetry(o, testT0, 199, EARTH)

	opt := NewProcOpt()
	opt.Metrics = gometrics.NewRegistry()
	sol, err := Process(tlm, cp, opt)
	require.NoError(t, err)

	require.Equal(t, 200, sol.NumValidEph)
	require.Zero(t, sol.NumBadEph)
	require.Zero(t, sol.NumBadAtt)
	require.Equal(t, 200*IMU_PER_RECORD+2000, sol.NumAttPoints)
	require.False(t, sol.QuatSol.NeedsInterp)

	// Ephemeris
	require.Equal(t, 200, sol.Eph.Len())
	for i, e := range sol.Eph.Samples {
		r, _ := o.eci(sol.Eph.Time(i))
		require.InDelta(t, 0, r3.Norm(r3.Sub(r, e.EciPos)), 1.0, "sample %d", i)
	}

	// Attitude on the gyro grid
	require.Equal(t, sol.ImuWin.Num, sol.Att.Len())
	require.InDelta(t, IMU_PERIOD, sol.Att.Period, 1e-6)
	require.InDelta(t, testT0, sol.Att.Time(0), 1e-6)
	require.Less(t, maxAttError(sol.Att), 2e-5)
	for i, s := range sol.Att.Samples {
		require.InDelta(t, 1, quat.Abs(s.QuatEci), 1e-9, "sample %d", i)
	}

	// Data quality counters
	require.Equal(t, int64(200), gometrics.GetOrRegisterCounter("eph.valid", opt.Metrics).Count())
	require.Equal(t, int64(0), gometrics.GetOrRegisterCounter("att.invalid", opt.Metrics).Count())
	require.Equal(t, int64(sol.NumAttPoints), gometrics.GetOrRegisterCounter("att.points", opt.Metrics).Count())
}

func TestProcessFinerAttitudeGrid(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	tlm := genTelemetry(o, testT0, 99, EARTH)

	ref, err := Process(tlm, cp, NewProcOpt())
	require.NoError(t, err)

	// The quaternion window follows the gyro spacing, not the output grid
	tlm = genTelemetry(o, testT0, 99, EARTH)
	opt := NewProcOpt()
	opt.AttSmooth.Period = IMU_PERIOD / 2
	sol, err := Process(tlm, cp, opt)
	require.NoError(t, err)
	require.Equal(t, ref.QuatWin.Num, sol.QuatWin.Num)
	require.InDelta(t, IMU_PERIOD/2, sol.Att.Period, 1e-6)
}

func TestProcessMissingQuatRecord(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	tlm := genTelemetry(o, testT0, 199, EARTH)
	tlm.Quat = dropQuat(tlm.Quat, 10*QUAT_PER_RECORD, 11*QUAT_PER_RECORD)

	sol, err := Process(tlm, cp, NewProcOpt())
	require.NoError(t, err)
	require.True(t, sol.QuatSol.NeedsInterp)
	require.Equal(t, 1, sol.QuatSol.NumMissing)
	require.Less(t, maxAttError(sol.Att), 2e-5)
}

func TestProcessStellar(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	tlm := genTelemetry(o, testT0, 99, STELLAR)

	sol, err := Process(tlm, cp, NewProcOpt())
	require.NoError(t, err)
	// Gyro data is not trusted for celestial acquisitions
	require.Equal(t, sol.ImuWin.Num, sol.Att.Len())
	require.Less(t, maxAttError(sol.Att), 1e-4)
}

func TestProcessCoverage(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)

	tlm := genTelemetry(o, testT0, 99, EARTH)
	tlm.Stop = *EpochFromJ2000(testT0 + 150)
	_, err := Process(tlm, cp, NewProcOpt())
	require.ErrorIs(t, err, ErrCoverage)

	tlm = genTelemetry(o, testT0, 99, LUNAR)
	tlm.Start = *EpochFromJ2000(testT0 - 10)
	_, err = Process(tlm, cp, NewProcOpt())
	require.ErrorIs(t, err, ErrCoverage)

	tlm = genTelemetry(o, testT0, 99, EARTH)
	tlm.Imu = nil
	_, err = Process(tlm, cp, NewProcOpt())
	require.ErrorIs(t, err, ErrCoverage)

	// Coverage is not required for other acquisitions
	tlm = genTelemetry(o, testT0, 99, OTHER)
	tlm.Stop = *EpochFromJ2000(testT0 + 150)
	_, err = Process(tlm, cp, NewProcOpt())
	require.NoError(t, err)
}

func TestProcessNoEphemeris(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	tlm := genTelemetry(o, testT0, 99, EARTH)
	for i := range tlm.Eph {
		tlm.Eph[i].Bad = true
	}
	_, err := Process(tlm, cp, NewProcOpt())
	require.ErrorIs(t, err, ErrNoValidData)
}
