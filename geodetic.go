// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package goancil

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Geodetic position on the WGS84 ellipsoid
type PosLLH struct {
	Lat float64 // [rad]
	Lon float64 // [rad]
	Hei float64 // Ellipsoidal height [m]
}

// Geodetic position of an ECEF point (Bowring)
func EcefToLLH(r r3.Vec) PosLLH {
	if r.X == 0 && r.Y == 0 && r.Z == 0 {
		return PosLLH{Hei: -Re}
	}

	// Ellipsoid parameters
	f := Fe
	a := Re
	b := a * (1 - f)
	e := math.Sqrt(f * (2 - f))

	h := a*a - b*b
	p := math.Sqrt(r.X*r.X + r.Y*r.Y)
	t := math.Atan2(r.Z*a, p*b)
	sint := math.Sin(t)
	cost := math.Cos(t)

	lat := math.Atan2(r.Z+h/b*sint*sint*sint, p-h/a*cost*cost*cost)
	lon := math.Atan2(r.Y, r.X)
	n := a / math.Sqrt(1-e*e*math.Sin(lat)*math.Sin(lat)) // Radius of curvature in the prime vertical
	var hei float64
	if math.Abs(lat) < PI/4 {
		hei = p/math.Cos(lat) - n
	} else {
		hei = r.Z/math.Sin(lat) - n*(1-e*e)
	}
	return PosLLH{Lat: lat, Lon: lon, Hei: hei}
}

func (llh *PosLLH) ToEcef() r3.Vec {
	f := Fe
	a := Re
	e := math.Sqrt(f * (2 - f))

	n := a / math.Sqrt(1-e*e*math.Sin(llh.Lat)*math.Sin(llh.Lat))
	return r3.Vec{
		X: (n + llh.Hei) * math.Cos(llh.Lat) * math.Cos(llh.Lon),
		Y: (n + llh.Hei) * math.Cos(llh.Lat) * math.Sin(llh.Lon),
		Z: (n*(1-e*e) + llh.Hei) * math.Sin(llh.Lat),
	}
}

// Latitude and longitude in degrees, height in km
func (llh *PosLLH) String() string {
	return fmt.Sprintf("%.4f %.4f %.3f", ToDeg(llh.Lat), ToDeg(llh.Lon), llh.Hei/1000)
}
