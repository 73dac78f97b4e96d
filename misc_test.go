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
)

func TestAcqType(t *testing.T) {
	var a AcqType
	for s, want := range map[string]AcqType{"earth": EARTH, "LUNAR": LUNAR, "2": STELLAR, "other": OTHER} {
		require.NoError(t, a.Set(s))
		require.Equal(t, want, a)
	}
	require.Error(t, a.Set("mars"))

	a = LUNAR
	require.Equal(t, "LUNAR", a.String())
	require.True(t, a.IsCelestial())
	require.True(t, a.NeedsCoverage())
	a = EARTH
	require.False(t, a.IsCelestial())
	a = OTHER
	require.False(t, a.IsCelestial())
	require.False(t, a.NeedsCoverage())

	var m EphMode
	require.NoError(t, m.Set("full"))
	require.Equal(t, EphMode(EPH_FULL), m)
	require.Equal(t, "FULL", m.String())
	require.Error(t, m.Set("partial"))
}

func TestWrapPi(t *testing.T) {
	require.InDelta(t, 0.1, WrapPi(0.1+2*PI), 1e-12)
	require.InDelta(t, -0.1, WrapPi(-0.1-4*PI), 1e-12)
	require.InDelta(t, PI-0.1, WrapPi(-PI-0.1), 1e-12)
}
