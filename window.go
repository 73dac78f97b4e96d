// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.10
//

package goancil

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// ImuWindow describes the IMU samples kept by WindowImu
type ImuWindow struct {
	Num        int     // Samples in the window
	NumInvalid int     // Flagged samples in the window
	Epoch      float64 // Time of the first retained sample [J2000 s]
}

// WindowImu trims the IMU buffer in place to the samples within [start, stop] (inclusive)
func WindowImu(buf *ImuBuffer, start, stop float64) (*ImuWindow, error) {
	s := slices.IndexFunc(buf.Time, func(t float64) bool { return t >= start })
	if s < 0 {
		return nil, fmt.Errorf("%w: no IMU sample at or after %s", ErrCoverage, EpochFromJ2000(start).String())
	}
	e := -1
	for i := buf.Len() - 1; i >= s; i-- {
		if buf.Time[i] <= stop {
			e = i
			break
		}
	}
	if e < 0 {
		return nil, fmt.Errorf("%w: no IMU sample within %s - %s", ErrCoverage, EpochFromJ2000(start).String(), EpochFromJ2000(stop).String())
	}
	buf.Trim(s, e)

	w := &ImuWindow{
		Num:   buf.Len(),
		Epoch: buf.Time[0],
	}
	for _, v := range buf.Valid {
		if !v {
			w.NumInvalid++
		}
	}
	PrintD(1, "IMU window: %s - %s (%d, %d invalid)\n", EpochFromJ2000(buf.Time[0]).String(), EpochFromJ2000(buf.Time[buf.Len()-1]).String(), w.Num, w.NumInvalid)
	return w, nil
}

// QuatWindow describes the quaternion samples kept by WindowQuat
type QuatWindow struct {
	Num        int // Samples in the window
	NumInvalid int // Flagged samples in the window
}

// WindowQuat trims the checked quaternion buffer in place to the IMU window
// - Start: first sample at or after imuStart whose successor is nominally spaced
// - End: the IMU sample count scaled by the period ratio, moved back until the spacing is nominal
func WindowQuat(buf *QuatBuffer, imuStart, imuStop float64, nImu int, imuPeriod float64, opt *QuatCheckOpt) (*QuatWindow, error) {
	n := buf.Len()
	if n < 2 || buf.Time[n-1] < imuStart {
		return nil, fmt.Errorf("%w: quaternions do not reach the IMU start %s", ErrCoverage, EpochFromJ2000(imuStart).String())
	}
	nominal := func(i int) bool {
		return math.Abs(buf.Time[i]-buf.Time[i-1]-opt.Period) <= opt.TimeTol
	}

	s := -1
	for i := 0; i < n-1; i++ {
		if buf.Time[i] >= imuStart-opt.TimeTol && nominal(i+1) {
			s = i
			break
		}
	}
	if s < 0 {
		return nil, fmt.Errorf("%w: no nominally spaced quaternion after %s", ErrCoverage, EpochFromJ2000(imuStart).String())
	}

	e := s + int(math.Round(float64(nImu)*imuPeriod/opt.Period))
	e = min(e, n-1)
	for e > s && (!nominal(e) || buf.Time[e] > imuStop+opt.TimeTol) {
		e--
	}
	buf.Trim(s, e)

	w := &QuatWindow{Num: buf.Len()}
	for _, v := range buf.Valid {
		if !v {
			w.NumInvalid++
		}
	}
	if w.Num-w.NumInvalid < 1 {
		return nil, fmt.Errorf("%w: no valid quaternion in the window", ErrNoValidData)
	}
	PrintD(1, "quaternion window: %s - %s (%d, %d invalid)\n", EpochFromJ2000(buf.Time[0]).String(), EpochFromJ2000(buf.Time[buf.Len()-1]).String(), w.Num, w.NumInvalid)
	return w, nil
}
