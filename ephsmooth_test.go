// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package goancil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSmoothEphemerisRoundTrip(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	in := o.series(testT0, 120, EPH_PERIOD)

	opt := NewEphSmoothOpt()
	opt.SigPosObs = 1e-4
	opt.SigVelObs = 1e-6
	opt.SigPosProc = 1.0
	opt.SigVelProc = 0.01

	out, err := SmoothEphemeris(in, cp, opt)
	require.NoError(t, err)
	require.Equal(t, in.Len(), out.Len())
	require.Equal(t, in.Epoch, out.Epoch)
	for i := range in.Samples {
		require.Equal(t, in.Samples[i].T, out.Samples[i].T)
		require.InDelta(t, 0, r3.Norm(r3.Sub(in.Samples[i].EciPos, out.Samples[i].EciPos)), 1e-3, "sample %d", i)
		require.InDelta(t, 0, r3.Norm(r3.Sub(in.Samples[i].EciVel, out.Samples[i].EciVel)), 1e-5, "sample %d", i)
		require.InDelta(t, 0, r3.Norm(r3.Sub(in.Samples[i].EcefPos, out.Samples[i].EcefPos)), 1e-3, "sample %d", i)
	}
}

func TestSmoothEphemerisNoise(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	truth := o.series(testT0, 300, EPH_PERIOD)

	rnd := rand.New(rand.NewSource(1))
	in := &EphSeries{Epoch: truth.Epoch, Period: truth.Period, Samples: make([]EphSample, truth.Len())}
	copy(in.Samples, truth.Samples)
	for i := range in.Samples {
		e := &in.Samples[i]
		e.EciPos = r3.Add(e.EciPos, r3.Vec{X: 5 * rnd.NormFloat64(), Y: 5 * rnd.NormFloat64(), Z: 5 * rnd.NormFloat64()})
		e.EciVel = r3.Add(e.EciVel, r3.Vec{X: 0.05 * rnd.NormFloat64(), Y: 0.05 * rnd.NormFloat64(), Z: 0.05 * rnd.NormFloat64()})
	}

	out, err := SmoothEphemeris(in, cp, NewEphSmoothOpt())
	require.NoError(t, err)

	var sIn, sOut float64
	for i := range truth.Samples {
		sIn += r3.Norm2(r3.Sub(in.Samples[i].EciPos, truth.Samples[i].EciPos))
		sOut += r3.Norm2(r3.Sub(out.Samples[i].EciPos, truth.Samples[i].EciPos))
	}
	rmsIn := math.Sqrt(sIn / float64(truth.Len()))
	rmsOut := math.Sqrt(sOut / float64(truth.Len()))
	require.Less(t, rmsOut, 0.5*rmsIn)
}

func TestSmoothEphemerisEmpty(t *testing.T) {
	_, err := SmoothEphemeris(&EphSeries{}, testCalParams(), NewEphSmoothOpt())
	require.ErrorIs(t, err, ErrNoValidData)
}
