// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.7
//

package goancil

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// CalParams holds the calibration parameters consumed by the ancillary processing
// Only the numeric subset needed here is carried; the full calibration file is handled elsewhere.
type CalParams struct {
	QuatMagTol    float64     `yaml:"quat_mag_tol"`    // Allowed |norm - 1| of an attitude quaternion
	OrbitRadius   float64     `yaml:"orbit_radius"`    // Nominal orbit radius [m]
	RadiusTol     float64     `yaml:"radius_tol"`      // Allowed deviation from the nominal radius [m]
	OrbitAngMom   float64     `yaml:"orbit_ang_mom"`   // Nominal orbital angular momentum [m^2/s]. 0 means sqrt(Mu * OrbitRadius)
	AngMomTol     float64     `yaml:"ang_mom_tol"`     // Allowed deviation from the nominal angular momentum [m^2/s]
	Mu            float64     `yaml:"mu"`              // Earth gravitational constant [m^3/s^2]
	J2            float64     `yaml:"j2"`              // Earth's second zonal harmonic
	Re            float64     `yaml:"re"`              // Earth's equatorial radius [m]
	ImuClockScale float64     `yaml:"imu_clock_scale"` // Seconds per IMU time-offset count
	ImuToAcs      [][]float64 `yaml:"imu_to_acs"`      // IMU-to-ACS alignment matrix (3x3, row major)
}

// NewCalParams creates calibration parameters for a 705 km sun-synchronous orbit
func NewCalParams() *CalParams {
	return &CalParams{
		QuatMagTol:    0.01,      // Unit quaternions from the ACS
		OrbitRadius:   7083000.0, // Re + 705 km
		RadiusTol:     50000.0,   // Covers eccentricity and altitude variation [m]
		OrbitAngMom:   0,         // Derived from OrbitRadius
		AngMomTol:     1.0e9,     // About 2% of the nominal value [m^2/s]
		Mu:            Mue,       // WGS84
		J2:            J2,        // EGM96
		Re:            Re,        // WGS84
		ImuClockScale: 1.0e-3,    // Millisecond ticks
		ImuToAcs:      [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
}

// LoadCalParams reads YAML calibration parameters on top of the defaults
func LoadCalParams(r io.Reader) (*CalParams, error) {
	cp := NewCalParams()
	err := yaml.NewDecoder(r).Decode(cp)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode calibration parameters: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

// Nominal angular momentum, derived from the radius of a circular orbit when not given
func (cp *CalParams) NominalAngMom() float64 {
	if cp.OrbitAngMom > 0 {
		return cp.OrbitAngMom
	}
	return math.Sqrt(cp.Mu * cp.OrbitRadius)
}

// IMU-to-ACS alignment as a rotation matrix
func (cp *CalParams) ImuAlignment() Mat3 {
	m, ok := Mat3From(cp.ImuToAcs)
	if !ok {
		return Ident3()
	}
	return m
}

func (cp *CalParams) Validate() error {
	pos := map[string]float64{
		"quat_mag_tol":    cp.QuatMagTol,
		"orbit_radius":    cp.OrbitRadius,
		"radius_tol":      cp.RadiusTol,
		"ang_mom_tol":     cp.AngMomTol,
		"mu":              cp.Mu,
		"re":              cp.Re,
		"imu_clock_scale": cp.ImuClockScale,
	}
	for k, v := range pos {
		if !(v > 0) {
			return fmt.Errorf("calibration parameter %s must be positive: %v", k, v)
		}
	}
	if cp.OrbitAngMom < 0 {
		return fmt.Errorf("calibration parameter orbit_ang_mom must not be negative: %v", cp.OrbitAngMom)
	}
	if cp.J2 < 0 {
		return fmt.Errorf("calibration parameter j2 must not be negative: %v", cp.J2)
	}
	if _, ok := Mat3From(cp.ImuToAcs); !ok {
		return fmt.Errorf("calibration parameter imu_to_acs must be 3x3")
	}
	return nil
}
