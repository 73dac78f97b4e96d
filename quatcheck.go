// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.10
//

// Implements anomaly detection and repair of attitude quaternion telemetry.

package goancil

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/num/quat"
)

// QuatCheckOpt contains options for quaternion anomaly detection
type QuatCheckOpt struct {
	Period  float64 // Nominal quaternion sampling period [s]
	TimeTol float64 // Tolerance when comparing sample times [s]
	MagTol  float64 // Allowed |norm - 1| for a valid quaternion (inclusive)
}

// NewQuatCheckOpt creates a new QuatCheckOpt with default values
func NewQuatCheckOpt() *QuatCheckOpt {
	return &QuatCheckOpt{
		Period:  QUAT_PERIOD, // 10 Hz
		TimeTol: 0.01,        // Well below one sampling period [s]
		MagTol:  0.01,        // Overridden by the calibration parameters in Process
	}
}

// QuatCheckSol contains the results of quaternion anomaly detection
type QuatCheckSol struct {
	NumValid    int  // Samples passing every check
	NeedsInterp bool // Zero-filled samples were inserted and must be bridged by the smoother
	NumMissing  int  // Records inserted for dropped records
	NumDupTail  int  // Records whose tail block was a duplicate
	NumDupHead  int  // Records whose head block was a duplicate
	NumBadMag   int  // Samples rejected by the magnitude check
}

// DetectQuatAnomalies flags and repairs anomalous quaternion samples in place
//
// The buffer is walked record by record (QUAT_PER_RECORD samples) once one full record has been read.
// Each record is compared with the record exactly one record length earlier:
//   - 2nd sample: a gap of two record times means a record was dropped. One zero-filled, invalid
//     record is inserted in its place.
//   - last sample: if the last two times repeat the previous record, the last QUAT_DUP_TAIL
//     samples are duplicates; if the first two times repeat, the first QUAT_DUP_HEAD samples are.
//     Duplicates are zero-filled and invalidated and their times regenerated.
//
// Finally a sample is valid iff |norm - 1| <= MagTol.
func DetectQuatAnomalies(buf *QuatBuffer, opt *QuatCheckOpt) (*QuatCheckSol, error) {
	n0 := buf.Len()
	if n0 == 0 {
		return nil, fmt.Errorf("%w: empty quaternion buffer", ErrNoValidData)
	}
	if n0%QUAT_PER_RECORD != 0 {
		PrintW("quaternion count %d is not a multiple of the record size %d\n", n0, QUAT_PER_RECORD)
	}

	sol := &QuatCheckSol{}
	S := QUAT_PER_RECORD
	recT := float64(S) * opt.Period
	same := func(a, b float64) bool {
		return math.Abs(a-b) <= opt.TimeTol
	}

	for i := S; i < buf.Len(); i++ {
		r := i - i%S // Start of the current record
		switch i % S {
		case 1:
			dt := buf.Time[i] - buf.Time[i-S]
			if !same(dt, 2*recT) {
				continue
			}
			if cap(buf.Time)-buf.Len() < S {
				PrintW("missing quaternion record before %s cannot be filled, no margin left\n", EpochFromJ2000(buf.Time[r]).String())
				continue
			}
			PrintD(1, "missing quaternion record before %s\n", EpochFromJ2000(buf.Time[r]).String())
			insertQuatRecord(buf, r, opt.Period)
			sol.NeedsInterp = true
			sol.NumMissing++
			i += S // Skip the inserted record
		case S - 1:
			if same(buf.Time[i], buf.Time[i-S]) && same(buf.Time[i-1], buf.Time[i-1-S]) {
				PrintD(1, "duplicated quaternion tail block at %s\n", EpochFromJ2000(buf.Time[r]).String())
				clearQuatBlock(buf, r+S-QUAT_DUP_TAIL, QUAT_DUP_TAIL, opt.Period)
				sol.NumDupTail++
			}
			// Head block repeated
			if same(buf.Time[r], buf.Time[r-S]) && same(buf.Time[r+1], buf.Time[r+1-S]) {
				PrintD(1, "duplicated quaternion head block at %s\n", EpochFromJ2000(buf.Time[r]).String())
				clearQuatBlock(buf, r, QUAT_DUP_HEAD, opt.Period)
				sol.NumDupHead++
			}
		}
	}

	for i, q := range buf.Q {
		ok := math.Abs(quat.Abs(q)-1) <= opt.MagTol
		if buf.Valid[i] && !ok {
			sol.NumBadMag++
		}
		buf.Valid[i] = buf.Valid[i] && ok
		if buf.Valid[i] {
			sol.NumValid++
		}
	}

	PrintD(1, "quaternions: %d samples, %d valid, %d inserted records, %d tail dups, %d head dups, %d bad magnitude\n",
		buf.Len(), sol.NumValid, sol.NumMissing, sol.NumDupTail, sol.NumDupHead, sol.NumBadMag)
	return sol, nil
}

// Insert one zero-filled record at r; times continue nominally from the sample before r
func insertQuatRecord(buf *QuatBuffer, r int, period float64) {
	S := QUAT_PER_RECORD
	buf.Time = slices.Insert(buf.Time, r, make([]float64, S)...)
	buf.Q = slices.Insert(buf.Q, r, make([]quat.Number, S)...)
	buf.Valid = slices.Insert(buf.Valid, r, make([]bool, S)...)
	for k := range S {
		buf.Time[r+k] = buf.Time[r-1] + float64(k+1)*period
	}
}

// Zero-fill and invalidate n samples from s; times continue nominally from the sample before s
func clearQuatBlock(buf *QuatBuffer, s, n int, period float64) {
	for k := s; k < s+n && k < buf.Len(); k++ {
		buf.Q[k] = quat.Number{}
		buf.Valid[k] = false
		buf.Time[k] = buf.Time[k-1] + period
	}
}
