// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package goancil

const (
	PI  = 3.1415926535897932   // Pi
	Re  = 6378137.0            // Earth's equatorial radius [m]
	Fe  = 1.0 / 298.257223563  // Earth's flattening
	Mue = 3.986004418e14       // Earth gravitational constant [m^3/s^2]
	J2  = 1.08262668e-3        // Earth's second zonal harmonic
	OMe = 7.292115146706979e-5 // Earth rotation angular velocity [rad/s]
)

// Telemetry layout
const (
	QUAT_PER_RECORD = 50 // Quaternion samples per L0R attitude record
	IMU_PER_RECORD  = 50 // Gyro samples per L0R IMU record
	QUAT_DUP_TAIL   = 22 // Samples repeated when a record's tail block is duplicated
	QUAT_DUP_HEAD   = 29 // Samples repeated when a record's head block is duplicated
)

// Nominal sampling periods [s]
const (
	EPH_PERIOD  = 1.0  // Ephemeris
	QUAT_PERIOD = 0.1  // Attitude quaternion
	IMU_PERIOD  = 0.02 // Gyro
)

// Numerical settings
const (
	NLAG        = 7  // Number of points used for Lagrange interpolation
	EPH_SUBSTEP = 10 // Propagation sub-steps per ephemeris interval in the Kalman prediction
)
