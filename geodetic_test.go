// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package goancil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGeodeticRoundTrip(t *testing.T) {
	for _, p := range []PosLLH{
		{Lat: 0, Lon: 0.5, Hei: 0},
		{Lat: 0.3, Lon: -2.0, Hei: 705000},
		{Lat: 0.8, Lon: 3.0, Hei: 705000},
		{Lat: -1.2, Lon: 1.0, Hei: 705000},
		{Lat: 1.5, Lon: -0.1, Hei: 100},
	} {
		got := EcefToLLH(p.ToEcef())
		require.InDelta(t, p.Lat, got.Lat, 1e-8, "%s", p.String())
		require.InDelta(t, p.Lon, got.Lon, 1e-12, "%s", p.String())
		require.InDelta(t, p.Hei, got.Hei, 0.01, "%s", p.String())
	}
}

func TestGeodeticPoints(t *testing.T) {
	p := EcefToLLH(r3.Vec{X: Re + 1000})
	require.Equal(t, "0.0000 0.0000 1.000", p.String())

	// Pole
	p = EcefToLLH(r3.Vec{Z: Re * (1 - Fe)})
	require.InDelta(t, PI/2, p.Lat, 1e-12)
	require.InDelta(t, 0, p.Hei, 1e-6)

	require.Equal(t, PosLLH{Hei: -Re}, EcefToLLH(r3.Vec{}))
}

func TestEphSeriesString(t *testing.T) {
	cp := testCalParams()
	o := newTestOrbit(cp, testT0)
	s := o.series(testT0, 10, EPH_PERIOD).String()
	require.Contains(t, s, "10 samples")
	require.Contains(t, s, "2025:123:03600.000000")
	require.Contains(t, s, "from ")
}
