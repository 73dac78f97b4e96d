// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package goancil

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Raw ephemeris record as received (ECEF state at J2000 seconds)
type RawEphRecord struct {
	Time    float64
	EcefPos r3.Vec
	EcefVel r3.Vec
	Bad     bool // Flagged by the on-board navigation (warning bits set)
}

// Raw attitude quaternion record (body-to-inertial)
type RawQuatRecord struct {
	Time float64
	Q    quat.Number
}

// One gyro sample inside an IMU record
type RawImuSample struct {
	Count int64  // Time offset from the record time in clock ticks
	Angle r3.Vec // Integrated angle registers in the IMU frame [rad]
	Bad   bool
}

// Raw IMU record: record time plus its samples
type RawImuRecord struct {
	Time    float64
	Samples []RawImuSample
}

// Telemetry of one imaging interval
type Telemetry struct {
	Acq   AcqType
	Start Epoch // Interval start
	Stop  Epoch // Interval stop
	Eph   []RawEphRecord
	Quat  []RawQuatRecord
	Imu   []RawImuRecord
}

func (p *Telemetry) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("acq: %s\n", p.Acq.String()))
	sb.WriteString(fmt.Sprintf("interval: %s - %s\n", p.Start.String(), p.Stop.String()))
	spanStr := func(n int, t0, t1 float64) string {
		return fmt.Sprintf("%s - %s (%d)\n", EpochFromJ2000(t0).String(), EpochFromJ2000(t1).String(), n)
	}
	if n := len(p.Eph); n > 0 {
		sb.WriteString("eph: " + spanStr(n, p.Eph[0].Time, p.Eph[n-1].Time))
	} else {
		sb.WriteString("eph: (0)\n")
	}
	if n := len(p.Quat); n > 0 {
		sb.WriteString("quat: " + spanStr(n, p.Quat[0].Time, p.Quat[n-1].Time))
	} else {
		sb.WriteString("quat: (0)\n")
	}
	if n := len(p.Imu); n > 0 {
		sb.WriteString("imu: " + spanStr(n, p.Imu[0].Time, p.Imu[n-1].Time))
	} else {
		sb.WriteString("imu: (0)\n")
	}
	return sb.String()
}

//-------------------------------------------------------------------
// Working buffers
//-------------------------------------------------------------------

// Quaternion samples with validity flags; room for one extra record is reserved
type QuatBuffer struct {
	Time  []float64
	Q     []quat.Number
	Valid []bool
}

func NewQuatBuffer(recs []RawQuatRecord) *QuatBuffer {
	n := len(recs)
	b := &QuatBuffer{
		Time:  make([]float64, n, n+QUAT_PER_RECORD),
		Q:     make([]quat.Number, n, n+QUAT_PER_RECORD),
		Valid: make([]bool, n, n+QUAT_PER_RECORD),
	}
	for i, r := range recs {
		b.Time[i] = r.Time
		b.Q[i] = r.Q
		b.Valid[i] = true
	}
	return b
}

func (b *QuatBuffer) Len() int {
	return len(b.Time)
}

// Keep samples [s, e] only
func (b *QuatBuffer) Trim(s, e int) {
	n := copy(b.Time, b.Time[s:e+1])
	copy(b.Q, b.Q[s:e+1])
	copy(b.Valid, b.Valid[s:e+1])
	b.Time = b.Time[:n]
	b.Q = b.Q[:n]
	b.Valid = b.Valid[:n]
}

// Gyro samples with validity flags
type ImuBuffer struct {
	Time  []float64
	Data  []r3.Vec
	Valid []bool
}

// NewImuBuffer expands IMU records into samples, converting the time offsets with the
// clock scale and rotating the angle registers into the ACS frame
func NewImuBuffer(recs []RawImuRecord, cp *CalParams) *ImuBuffer {
	n := len(recs) * IMU_PER_RECORD
	b := &ImuBuffer{
		Time:  make([]float64, 0, n),
		Data:  make([]r3.Vec, 0, n),
		Valid: make([]bool, 0, n),
	}
	align := cp.ImuAlignment()
	for _, rec := range recs {
		if len(rec.Samples) != IMU_PER_RECORD {
			PrintW("IMU record at %s has %d samples (expected %d)\n", EpochFromJ2000(rec.Time).String(), len(rec.Samples), IMU_PER_RECORD)
		}
		for _, s := range rec.Samples {
			b.Time = append(b.Time, rec.Time+float64(s.Count)*cp.ImuClockScale)
			b.Data = append(b.Data, align.MulVec(s.Angle))
			b.Valid = append(b.Valid, !s.Bad)
		}
	}
	return b
}

func (b *ImuBuffer) Len() int {
	return len(b.Time)
}

// Mean sample spacing after the clock scale; IMU_PERIOD below two samples
func (b *ImuBuffer) Period() float64 {
	n := b.Len()
	if n < 2 {
		return IMU_PERIOD
	}
	return (b.Time[n-1] - b.Time[0]) / float64(n-1)
}

// Keep samples [s, e] only
func (b *ImuBuffer) Trim(s, e int) {
	n := copy(b.Time, b.Time[s:e+1])
	copy(b.Data, b.Data[s:e+1])
	copy(b.Valid, b.Valid[s:e+1])
	b.Time = b.Time[:n]
	b.Data = b.Data[:n]
	b.Valid = b.Valid[:n]
}
