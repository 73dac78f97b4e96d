// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.14
//

package goancil

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

//-------------------------------------------------------------------
// Mat3
//-------------------------------------------------------------------

// 3x3 rotation matrix, row major
type Mat3 [3][3]float64

func Ident3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (a Mat3) Mul(b Mat3) (c Mat3) {
	for i := range 3 {
		for j := range 3 {
			c[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return
}

func (a Mat3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: a[0][0]*v.X + a[0][1]*v.Y + a[0][2]*v.Z,
		Y: a[1][0]*v.X + a[1][1]*v.Y + a[1][2]*v.Z,
		Z: a[2][0]*v.X + a[2][1]*v.Y + a[2][2]*v.Z,
	}
}

func (a Mat3) T() (b Mat3) {
	for i := range 3 {
		for j := range 3 {
			b[i][j] = a[j][i]
		}
	}
	return
}

// Build from a 3x3 nested slice
func Mat3From(rows [][]float64) (m Mat3, ok bool) {
	if len(rows) != 3 {
		return m, false
	}
	for i, r := range rows {
		if len(r) != 3 {
			return m, false
		}
		copy(m[i][:], r)
	}
	return m, true
}

//-------------------------------------------------------------------
// Rotations and Euler angles
//-------------------------------------------------------------------

func RotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func RotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func RotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Body-to-reference matrix Rz(yaw) Ry(pitch) Rx(roll) from (roll, pitch, yaw)
func EulerToMat(rpy r3.Vec) Mat3 {
	return RotZ(rpy.Z).Mul(RotY(rpy.Y)).Mul(RotX(rpy.X))
}

// Inverse of EulerToMat
func MatToEuler(m Mat3) r3.Vec {
	sp := math.Max(-1, math.Min(1, -m[2][0]))
	return r3.Vec{
		X: math.Atan2(m[2][1], m[2][2]),
		Y: math.Asin(sp),
		Z: math.Atan2(m[1][0], m[0][0]),
	}
}

// Small rotation taking frame a to frame b, both given as reference-to-frame matrices
// - dA = b a^T ~ I - [theta x]
func SmallRotation(a, b Mat3) r3.Vec {
	d := b.Mul(a.T())
	return r3.Vec{
		X: (d[1][2] - d[2][1]) / 2,
		Y: (d[2][0] - d[0][2]) / 2,
		Z: (d[0][1] - d[1][0]) / 2,
	}
}

//-------------------------------------------------------------------
// Quaternions
//-------------------------------------------------------------------

// Rotation matrix of a (not necessarily unit) quaternion; v_ref = q v_body q*
func QuatToMat(q quat.Number) Mat3 {
	n := quat.Abs(q)
	if n == 0 {
		return Ident3()
	}
	w, x, y, z := q.Real/n, q.Imag/n, q.Jmag/n, q.Kmag/n
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// Quaternion of a rotation matrix with non-negative scalar part
func MatToQuat(m Mat3) quat.Number {
	var q quat.Number
	tr := m[0][0] + m[1][1] + m[2][2]
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(1+tr)
		q = quat.Number{Real: s / 4, Imag: (m[2][1] - m[1][2]) / s, Jmag: (m[0][2] - m[2][0]) / s, Kmag: (m[1][0] - m[0][1]) / s}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q = quat.Number{Real: (m[2][1] - m[1][2]) / s, Imag: s / 4, Jmag: (m[0][1] + m[1][0]) / s, Kmag: (m[0][2] + m[2][0]) / s}
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q = quat.Number{Real: (m[0][2] - m[2][0]) / s, Imag: (m[0][1] + m[1][0]) / s, Jmag: s / 4, Kmag: (m[1][2] + m[2][1]) / s}
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q = quat.Number{Real: (m[1][0] - m[0][1]) / s, Imag: (m[0][2] + m[2][0]) / s, Jmag: (m[1][2] + m[2][1]) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}

//-------------------------------------------------------------------
// Earth rotation
//-------------------------------------------------------------------

// Greenwich mean sidereal time [rad] (IAU-82) at J2000 seconds
func GMST(t float64) float64 {
	tu := t / 86400.0 / 36525.0 // Julian centuries since J2000
	g := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu
	g = math.Mod(g, 86400.0)
	if g < 0 {
		g += 86400.0
	}
	return g / 86400.0 * 2 * PI
}

// Inertial-to-Earth-fixed rotation at J2000 seconds (GMST only, no polar motion or nutation)
func EciToEcefMat(t float64) Mat3 {
	return RotZ(-GMST(t))
}

func EciToEcef(t float64, r, v r3.Vec) (re, ve r3.Vec) {
	m := EciToEcefMat(t)
	re = m.MulVec(r)
	// v_ecef = R v_eci - w x r_ecef
	ve = r3.Sub(m.MulVec(v), r3.Cross(r3.Vec{Z: OMe}, re))
	return
}

func EcefToEci(t float64, r, v r3.Vec) (ri, vi r3.Vec) {
	m := EciToEcefMat(t).T()
	ri = m.MulVec(r)
	vi = m.MulVec(r3.Add(v, r3.Cross(r3.Vec{Z: OMe}, r)))
	return
}

//-------------------------------------------------------------------
// Orbital frame
//-------------------------------------------------------------------

// Inertial-to-orbit matrix; rows are the along-track, negative orbit normal and nadir axes
func OrbitFrame(r, v r3.Vec) Mat3 {
	z := r3.Scale(-1, r3.Unit(r))
	y := r3.Scale(-1, r3.Unit(r3.Cross(r, v)))
	x := r3.Cross(y, z)
	return Mat3{
		{x.X, x.Y, x.Z},
		{y.X, y.Y, y.Z},
		{z.X, z.Y, z.Z},
	}
}
