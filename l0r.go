// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package goancil

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Text dump of L0R ancillary telemetry, one record per line (times in J2000 seconds)
//
//	# comment
//	HDR acq year doy sod year doy sod     (acquisition type, interval start and stop)
//	EPH t x y z vx vy vz flag             (ECEF [m], [m/s]; flag 1 = bad)
//	QAT t q1 q2 q3 q0                     (body-to-ECI, scalar last)
//	IMU t count ax ay az flag             (record time, tick offset, angle registers [rad])
//
// Consecutive IMU lines with the same record time form one record.

// Parse all fields of a line as float64
func parseFields(la []string) ([]float64, error) {
	v := make([]float64, len(la))
	for i, a := range la {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		v[i] = f
	}
	return v, nil
}

func getHdr(la []string, tlm *Telemetry) error {
	if len(la) != 8 {
		return fmt.Errorf("HDR needs 7 fields, got %d", len(la)-1)
	}
	if err := tlm.Acq.Set(la[1]); err != nil {
		return err
	}
	if err := tlm.Start.Set(strings.Join(la[2:5], " ")); err != nil {
		return err
	}
	return tlm.Stop.Set(strings.Join(la[5:8], " "))
}

func getEph(la []string) (*RawEphRecord, error) {
	if len(la) != 9 {
		return nil, fmt.Errorf("EPH needs 8 fields, got %d", len(la)-1)
	}
	v, err := parseFields(la[1:])
	if err != nil {
		return nil, err
	}
	return &RawEphRecord{
		Time:    v[0],
		EcefPos: r3.Vec{X: v[1], Y: v[2], Z: v[3]},
		EcefVel: r3.Vec{X: v[4], Y: v[5], Z: v[6]},
		Bad:     v[7] != 0,
	}, nil
}

func getQat(la []string) (*RawQuatRecord, error) {
	if len(la) != 6 {
		return nil, fmt.Errorf("QAT needs 5 fields, got %d", len(la)-1)
	}
	v, err := parseFields(la[1:])
	if err != nil {
		return nil, err
	}
	return &RawQuatRecord{
		Time: v[0],
		Q:    quat.Number{Real: v[4], Imag: v[1], Jmag: v[2], Kmag: v[3]},
	}, nil
}

func getImu(la []string) (float64, *RawImuSample, error) {
	if len(la) != 7 {
		return 0, nil, fmt.Errorf("IMU needs 6 fields, got %d", len(la)-1)
	}
	t, err := strconv.ParseFloat(la[1], 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid time %q", la[1])
	}
	cnt, err := strconv.ParseInt(la[2], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid count %q", la[2])
	}
	v, err := parseFields(la[3:])
	if err != nil {
		return 0, nil, err
	}
	return t, &RawImuSample{
		Count: cnt,
		Angle: r3.Vec{X: v[0], Y: v[1], Z: v[2]},
		Bad:   v[3] != 0,
	}, nil
}

// ReadTelemetry reads a text dump of L0R ancillary telemetry
// Malformed data lines are skipped with a warning.
func ReadTelemetry(r io.Reader) (*Telemetry, error) {
	tlm := &Telemetry{}
	hdr := false
	nskip := 0

	s := bufio.NewScanner(r)
	ln := 0
	for s.Scan() {
		ln++
		line := strings.TrimSpace(s.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		la := strings.Fields(line)

		var err error
		switch la[0] {
		case "HDR":
			err = getHdr(la, tlm)
			if err != nil {
				return nil, fmt.Errorf("getHdr() failed at line %d, err= %w", ln, err)
			}
			hdr = true
		case "EPH":
			var rec *RawEphRecord
			if rec, err = getEph(la); err == nil {
				tlm.Eph = append(tlm.Eph, *rec)
			}
		case "QAT":
			var rec *RawQuatRecord
			if rec, err = getQat(la); err == nil {
				tlm.Quat = append(tlm.Quat, *rec)
			}
		case "IMU":
			var t float64
			var smp *RawImuSample
			if t, smp, err = getImu(la); err == nil {
				n := len(tlm.Imu)
				if n == 0 || tlm.Imu[n-1].Time != t {
					tlm.Imu = append(tlm.Imu, RawImuRecord{Time: t, Samples: make([]RawImuSample, 0, IMU_PER_RECORD)})
					n++
				}
				tlm.Imu[n-1].Samples = append(tlm.Imu[n-1].Samples, *smp)
			}
		default:
			err = fmt.Errorf("unknown record type %q", la[0])
		}
		if err != nil {
			PrintW("line %d skipped: %s\n", ln, err.Error())
			nskip++
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if !hdr {
		return nil, fmt.Errorf("no HDR line in the telemetry")
	}
	PrintD(1, "telemetry: %d eph, %d quat, %d imu records, %d lines skipped\n", len(tlm.Eph), len(tlm.Quat), len(tlm.Imu), nskip)
	return tlm, nil
}

// WriteTelemetry writes telemetry in the format read by ReadTelemetry
func WriteTelemetry(w io.Writer, tlm *Telemetry) error {
	bw := bufio.NewWriter(w)
	flag := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	fmt.Fprintf(bw, "HDR %s %d %d %.6f %d %d %.6f\n", tlm.Acq.String(),
		tlm.Start.Year, tlm.Start.Doy, tlm.Start.Sod, tlm.Stop.Year, tlm.Stop.Doy, tlm.Stop.Sod)
	for _, e := range tlm.Eph {
		fmt.Fprintf(bw, "EPH %.6f %.4f %.4f %.4f %.6f %.6f %.6f %d\n", e.Time,
			e.EcefPos.X, e.EcefPos.Y, e.EcefPos.Z, e.EcefVel.X, e.EcefVel.Y, e.EcefVel.Z, flag(e.Bad))
	}
	for _, q := range tlm.Quat {
		fmt.Fprintf(bw, "QAT %.6f %.12f %.12f %.12f %.12f\n", q.Time, q.Q.Imag, q.Q.Jmag, q.Q.Kmag, q.Q.Real)
	}
	for _, rec := range tlm.Imu {
		for _, smp := range rec.Samples {
			fmt.Fprintf(bw, "IMU %.6f %d %.12e %.12e %.12e %d\n", rec.Time, smp.Count, smp.Angle.X, smp.Angle.Y, smp.Angle.Z, flag(smp.Bad))
		}
	}
	return bw.Flush()
}
