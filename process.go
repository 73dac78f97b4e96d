// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package goancil

import (
	"fmt"

	gometrics "github.com/rcrowley/go-metrics"
)

// ProcOpt contains the options of the whole ancillary processing
type ProcOpt struct {
	Eph       *EphOpt
	EphSmooth *EphSmoothOpt
	QuatCheck *QuatCheckOpt
	AttSmooth *AttSmoothOpt
	BadAttPct float64            // Warn when invalid attitude points exceed this percentage
	Metrics   gometrics.Registry // Data quality counters are published here when not nil
}

// NewProcOpt creates a new ProcOpt with default values
func NewProcOpt() *ProcOpt {
	return &ProcOpt{
		Eph:       NewEphOpt(),
		EphSmooth: NewEphSmoothOpt(),
		QuatCheck: NewQuatCheckOpt(),
		AttSmooth: NewAttSmoothOpt(),
		BadAttPct: 5.0,
	}
}

// ProcSol contains the results of the ancillary processing
type ProcSol struct {
	Eph          *EphSeries
	Att          *AttSeries
	EphSol       *EphProcSol
	QuatSol      *QuatCheckSol
	ImuWin       *ImuWindow
	QuatWin      *QuatWindow
	NumValidEph  int
	NumBadEph    int
	NumBadAtt    int // Invalid IMU and quaternion samples in the windows
	NumAttPoints int // IMU and quaternion samples received
}

// Process runs the ephemeris path and then the attitude path over one imaging interval
func Process(tlm *Telemetry, cp *CalParams, opt *ProcOpt) (*ProcSol, error) {
	if tlm.Acq.NeedsCoverage() {
		if err := checkCoverage(tlm); err != nil {
			return nil, fmt.Errorf("checkCoverage() failed, err= %w", err)
		}
	}
	sol := &ProcSol{}

	//--------------------------------------------------------------
	// Ephemeris
	//--------------------------------------------------------------
	eopt := *opt.Eph
	eopt.Start = tlm.Start.J2000()
	eopt.Stop = tlm.Stop.J2000()
	esol, err := ProcessEphemeris(tlm.Eph, cp, &eopt)
	if err != nil {
		return nil, fmt.Errorf("ProcessEphemeris() failed, err= %w", err)
	}
	sol.EphSol = esol
	sol.NumValidEph = esol.NumValid
	sol.NumBadEph = esol.NumInvalid()

	sol.Eph, err = SmoothEphemeris(esol.Series, cp, opt.EphSmooth)
	if err != nil {
		return nil, fmt.Errorf("SmoothEphemeris() failed, err= %w", err)
	}
	ephStart := sol.Eph.Time(0)
	ephStop := sol.Eph.Time(sol.Eph.Len() - 1)

	//--------------------------------------------------------------
	// Attitude
	//--------------------------------------------------------------
	qopt := *opt.QuatCheck
	qopt.MagTol = cp.QuatMagTol
	qbuf := NewQuatBuffer(tlm.Quat)
	sol.QuatSol, err = DetectQuatAnomalies(qbuf, &qopt)
	if err != nil {
		return nil, fmt.Errorf("DetectQuatAnomalies() failed, err= %w", err)
	}

	ibuf := NewImuBuffer(tlm.Imu, cp)
	sol.NumAttPoints = ibuf.Len() + len(tlm.Quat)

	sol.ImuWin, err = WindowImu(ibuf, ephStart, ephStop)
	if err != nil {
		return nil, fmt.Errorf("WindowImu() failed, err= %w", err)
	}
	imuStop := ibuf.Time[ibuf.Len()-1]
	sol.QuatWin, err = WindowQuat(qbuf, sol.ImuWin.Epoch, imuStop, sol.ImuWin.Num, ibuf.Period(), &qopt)
	if err != nil {
		return nil, fmt.Errorf("WindowQuat() failed, err= %w", err)
	}

	ephIp := NewEphInterp(sol.Eph)
	qa, err := QuatToAngles(qbuf, ephIp, tlm.Acq)
	if err != nil {
		return nil, fmt.Errorf("QuatToAngles() failed, err= %w", err)
	}
	ir, err := ImuToRates(ibuf, tlm.Acq)
	if err != nil {
		return nil, fmt.Errorf("ImuToRates() failed, err= %w", err)
	}
	RemoveOrbitalMotion(ir, ephIp, qa.Ref, tlm.Acq)

	sm, err := SmoothAttitude(qa, ir, opt.AttSmooth)
	if err != nil {
		return nil, fmt.Errorf("SmoothAttitude() failed, err= %w", err)
	}
	sol.Att = newAttSeries(sm)
	AttitudeQuaternions(sol.Att, ephIp, tlm.Acq)

	//--------------------------------------------------------------
	// Data quality
	//--------------------------------------------------------------
	sol.NumBadAtt = sol.ImuWin.NumInvalid + sol.QuatWin.NumInvalid
	if sol.NumAttPoints > 0 && float64(sol.NumBadAtt) > opt.BadAttPct/100*float64(sol.NumAttPoints) {
		PrintW("%d of %d attitude points are invalid (more than %.1f%%)\n", sol.NumBadAtt, sol.NumAttPoints, opt.BadAttPct)
	}
	if opt.Metrics != nil {
		publishQuality(opt.Metrics, sol)
	}
	PrintD(1, "ephemeris: %d valid, %d invalid; attitude: %d invalid of %d\n", sol.NumValidEph, sol.NumBadEph, sol.NumBadAtt, sol.NumAttPoints)
	return sol, nil
}

// Telemetry must span the whole interval
func checkCoverage(tlm *Telemetry) error {
	start, stop := tlm.Start.J2000(), tlm.Stop.J2000()
	if stop < start {
		return fmt.Errorf("interval stop %s is before start %s", tlm.Stop.String(), tlm.Start.String())
	}
	type span struct {
		name   string
		n      int
		t0, t1 float64
	}
	spans := []span{{name: "ephemeris", n: len(tlm.Eph)}, {name: "quaternion", n: len(tlm.Quat)}, {name: "IMU", n: len(tlm.Imu)}}
	if n := len(tlm.Eph); n > 0 {
		spans[0].t0, spans[0].t1 = tlm.Eph[0].Time, tlm.Eph[n-1].Time
	}
	if n := len(tlm.Quat); n > 0 {
		spans[1].t0, spans[1].t1 = tlm.Quat[0].Time, tlm.Quat[n-1].Time
	}
	if n := len(tlm.Imu); n > 0 {
		spans[2].t0, spans[2].t1 = tlm.Imu[0].Time, tlm.Imu[n-1].Time
	}
	for _, s := range spans {
		if s.n == 0 {
			return fmt.Errorf("%w: no %s telemetry", ErrCoverage, s.name)
		}
		if s.t0 > start || s.t1 < stop {
			return fmt.Errorf("%w: %s telemetry %s - %s, interval %s - %s", ErrCoverage, s.name,
				EpochFromJ2000(s.t0).String(), EpochFromJ2000(s.t1).String(), tlm.Start.String(), tlm.Stop.String())
		}
	}
	return nil
}

func newAttSeries(sm *SmoothedAttitude) *AttSeries {
	t0 := sm.Time[0]
	as := &AttSeries{
		Epoch:   *EpochFromJ2000(t0),
		Samples: make([]AttSample, sm.Len()),
	}
	if sm.Len() > 1 {
		as.Period = sm.Time[1] - sm.Time[0]
	}
	for i := range as.Samples {
		as.Samples[i] = AttSample{
			T:     sm.Time[i] - t0,
			Angle: sm.Angle[i],
			Rate:  sm.Rate[i],
		}
	}
	return as
}

func publishQuality(r gometrics.Registry, sol *ProcSol) {
	gometrics.GetOrRegisterCounter("eph.valid", r).Inc(int64(sol.NumValidEph))
	gometrics.GetOrRegisterCounter("eph.invalid", r).Inc(int64(sol.NumBadEph))
	gometrics.GetOrRegisterCounter("eph.corrected", r).Inc(int64(sol.EphSol.NumCorrected))
	gometrics.GetOrRegisterCounter("eph.propagated", r).Inc(int64(sol.EphSol.NumPropagated))
	gometrics.GetOrRegisterCounter("quat.missing", r).Inc(int64(sol.QuatSol.NumMissing))
	gometrics.GetOrRegisterCounter("quat.dup", r).Inc(int64(sol.QuatSol.NumDupTail + sol.QuatSol.NumDupHead))
	gometrics.GetOrRegisterCounter("att.invalid", r).Inc(int64(sol.NumBadAtt))
	gometrics.GetOrRegisterCounter("att.points", r).Inc(int64(sol.NumAttPoints))
}
