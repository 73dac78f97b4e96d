// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

// Implements outlier rejection, time-tag correction and uniform resampling of raw ephemeris.

package goancil

import (
	"cmp"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r3"
)

// EphOpt contains options for ephemeris processing
type EphOpt struct {
	Mode          EphMode // EPH_INTERVAL: bounded by [Start-Margin, Stop+Margin], EPH_FULL: whole span
	Start         float64 // Interval start [J2000 s]
	Stop          float64 // Interval stop [J2000 s]
	Margin        float64 // Extra span kept around the interval [s]
	Period        float64 // Output sampling period [s]
	TimeTolFactor float64 // Time-tag residual tolerance as a fraction of Period
}

// NewEphOpt creates a new EphOpt with default values
func NewEphOpt() *EphOpt {
	return &EphOpt{
		Mode:          EPH_INTERVAL,
		Margin:        4 * NLAG * EPH_PERIOD, // Room for interpolation at both ends [s]
		Period:        EPH_PERIOD,
		TimeTolFactor: 0.1, // 0.1 s at 1 Hz
	}
}

// EphProcSol contains the results of ephemeris processing
type EphProcSol struct {
	NumRaw        int // Records received
	NumFlagged    int // Records flagged bad on board
	NumOutside    int // Records outside the interval bounds
	NumOutlier    int // Records rejected by the orbit checks
	NumValid      int // Records accepted
	NumDup        int // Duplicated time tags dropped
	NumCorrected  int // Time tags replaced by the fitted value
	NumDropped    int // Records whose corrected time tag fell on a taken grid index
	NumPropagated int // Synthetic records added by propagation
	Series        *EphSeries
}

// Number of invalid ephemeris records
func (s *EphProcSol) NumInvalid() int {
	return s.NumFlagged + s.NumOutlier
}

// Ephemeris point in ECI with the ECEF state it was converted from
type ephPoint struct {
	t  float64
	r  r3.Vec
	v  r3.Vec
	er r3.Vec
	ev r3.Vec
}

// ProcessEphemeris rejects outliers from raw ephemeris and resamples it in ECI on a uniform grid
func ProcessEphemeris(recs []RawEphRecord, cp *CalParams, opt *EphOpt) (*EphProcSol, error) {
	sol := &EphProcSol{NumRaw: len(recs)}

	// Boundary records not flagged by the on-board navigation
	s, e := -1, -1
	for i := range recs {
		if !recs[i].Bad {
			if s < 0 {
				s = i
			}
			e = i
		}
	}
	if s < 0 {
		return nil, fmt.Errorf("%w: all %d ephemeris records are flagged", ErrNoValidData, len(recs))
	}
	sol.NumFlagged = s + len(recs) - 1 - e

	h0 := cp.NominalAngMom()
	pts := make([]ephPoint, 0, e-s+1+NLAG)
	for _, rec := range recs[s : e+1] {
		if rec.Bad {
			sol.NumFlagged++
			continue
		}
		if opt.Mode == EPH_INTERVAL && (rec.Time < opt.Start-opt.Margin || rec.Time > opt.Stop+opt.Margin) {
			sol.NumOutside++
			continue
		}
		r, v := EcefToEci(rec.Time, rec.EcefPos, rec.EcefVel)
		h := r3.Norm(r3.Cross(r, v))
		rad := r3.Norm(r)
		if math.Abs(h-h0) > cp.AngMomTol || math.Abs(rad-cp.OrbitRadius) > cp.RadiusTol {
			llh := EcefToLLH(rec.EcefPos)
			PrintD(1, "ephemeris outlier at %s: |h|=%.1f, |r|=%.1f, llh=%s\n", EpochFromJ2000(rec.Time).String(), h, rad, llh.String())
			sol.NumOutlier++
			continue
		}
		pts = append(pts, ephPoint{t: rec.Time, r: r, v: v, er: rec.EcefPos, ev: rec.EcefVel})
	}
	sol.NumValid = len(pts)
	if sol.NumOutlier > 0 {
		PrintW("%d ephemeris outliers rejected\n", sol.NumOutlier)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no ephemeris record passed the orbit checks", ErrNoValidData)
	}

	nDup, nCor, nDrop, err := correctEphTimes(&pts, opt.Period, opt.TimeTolFactor*opt.Period)
	if err != nil {
		return nil, fmt.Errorf("correctEphTimes() failed, err= %w", err)
	}
	sol.NumDup, sol.NumCorrected, sol.NumDropped = nDup, nCor, nDrop
	if nCor > 0 || nDrop > 0 {
		PrintW("%d ephemeris time tags corrected, %d records dropped\n", nCor, nDrop)
	}

	sol.NumPropagated += padEph(&pts, cp, opt.Period)
	if sol.NumPropagated > 0 {
		PrintW("%d ephemeris records propagated\n", sol.NumPropagated)
	}

	sol.Series = resampleEph(pts, opt.Period)
	PrintD(1, "ephemeris: %d raw, %d flagged, %d outside, %d outliers, %d valid, %d resampled\n",
		sol.NumRaw, sol.NumFlagged, sol.NumOutside, sol.NumOutlier, sol.NumValid, sol.Series.Len())
	return sol, nil
}

// Append points propagated from the last one until there is enough support for interpolation
func padEph(pts *[]ephPoint, cp *CalParams, period float64) int {
	n := 0
	for {
		p := *pts
		span := p[len(p)-1].t - p[0].t
		if len(p) >= NLAG && span >= float64(NLAG-1)*period-1e-6 {
			return n
		}
		last := p[len(p)-1]
		r, v := Propagate(last.r, last.v, period, EPH_SUBSTEP, cp)
		*pts = append(p, ephPoint{t: last.t + period, r: r, v: v})
		n++
	}
}

// Drop duplicated time tags, fit t = a + b k on the consistent tags and move the others onto their fitted grid index.
// A tag whose index is already taken is dropped with its record.
func correctEphTimes(pts *[]ephPoint, period, tol float64) (nDup, nCor, nDrop int, err error) {
	p := dedupEph(*pts, tol)
	nDup = len(*pts) - len(p)
	if len(p) < 2 {
		*pts = p
		return
	}

	t0 := p[0].t
	ks := make([]float64, len(p))
	ts := make([]float64, len(p))
	for i, x := range p {
		ks[i] = math.Round((x.t - t0) / period)
		ts[i] = x.t - t0
	}
	a, b, res, _, err := RobustFitLine(ks, ts, tol)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("RobustFitLine() failed, err= %w", err)
	}

	held := make(map[int64]bool, len(p))
	for i := range p {
		if math.Abs(res[i]) <= tol {
			held[int64(ks[i])] = true
		}
	}
	q := make([]ephPoint, 0, len(p))
	for i, x := range p {
		if math.Abs(res[i]) <= tol {
			q = append(q, x)
			continue
		}
		k := math.Round((ts[i] - a) / b)
		if held[int64(k)] {
			PrintD(1, "ephemeris time tag %s off by %.6f s, index %d taken, dropped\n", EpochFromJ2000(x.t).String(), ts[i]-a-b*k, int64(k))
			nDrop++
			continue
		}
		held[int64(k)] = true
		x.t = t0 + a + b*k
		x.r, x.v = EcefToEci(x.t, x.er, x.ev)
		PrintD(1, "ephemeris time tag %s corrected by %.6f s\n", EpochFromJ2000(t0+ts[i]).String(), x.t-t0-ts[i])
		nCor++
		q = append(q, x)
	}

	slices.SortStableFunc(q, func(x, y ephPoint) int { return cmp.Compare(x.t, y.t) })
	r := dedupEph(q, tol)
	nDrop += len(q) - len(r)
	*pts = r
	return
}

// Drop points closer than tol to the previous kept one
func dedupEph(p []ephPoint, tol float64) []ephPoint {
	if len(p) == 0 {
		return p
	}
	q := make([]ephPoint, 1, len(p))
	q[0] = p[0]
	for _, x := range p[1:] {
		if math.Abs(x.t-q[len(q)-1].t) <= tol {
			continue
		}
		q = append(q, x)
	}
	return q
}

// Lagrange interpolation of the ECI state onto a grid from the first to the last point
func resampleEph(pts []ephPoint, period float64) *EphSeries {
	t0 := pts[0].t
	n := int(math.Floor((pts[len(pts)-1].t-t0)/period+1e-6)) + 1

	ts := make([]float64, len(pts))
	var val [6][]float64
	for j := range 6 {
		val[j] = make([]float64, len(pts))
	}
	for i, p := range pts {
		ts[i] = p.t - t0
		val[0][i], val[1][i], val[2][i] = p.r.X, p.r.Y, p.r.Z
		val[3][i], val[4][i], val[5][i] = p.v.X, p.v.Y, p.v.Z
	}

	es := &EphSeries{
		Epoch:   *EpochFromJ2000(t0),
		Period:  period,
		Samples: make([]EphSample, n),
	}
	var x [6]float64
	for i := range n {
		tr := float64(i) * period
		for j := range 6 {
			x[j] = Interp(ts, val[j], tr, NLAG)
		}
		e := &es.Samples[i]
		e.T = tr
		e.EciPos = r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		e.EciVel = r3.Vec{X: x[3], Y: x[4], Z: x[5]}
		e.EcefPos, e.EcefVel = EciToEcef(t0+tr, e.EciPos, e.EciVel)
	}
	return es
}
