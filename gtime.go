// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.3
//

package goancil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reference instant of "seconds since J2000" (2000/1/1 12:00:00)
var J2000Origin = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// Time as year, day of year (1-366) and second of day
type Epoch struct {
	Year int
	Doy  int
	Sod  float64
}

func NewEpoch(dt time.Time) *Epoch {
	dt = dt.UTC()
	midnight := time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
	return &Epoch{
		Year: dt.Year(),
		Doy:  dt.YearDay(),
		Sod:  dt.Sub(midnight).Seconds(),
	}
}

func (p *Epoch) ToTime() time.Time {
	o := time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, p.Doy-1)
	i := math.Trunc(p.Sod)
	n := int64(math.Round((p.Sod - i) * 1e9))
	return o.Add(time.Duration(i)*time.Second + time.Duration(n))
}

// Seconds elapsed since J2000
func (p *Epoch) J2000() float64 {
	o := time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, p.Doy-1)
	return o.Sub(J2000Origin).Seconds() + p.Sod
}

func EpochFromJ2000(sec float64) *Epoch {
	day := math.Floor((sec + 43200) / 86400) // Whole days since 2000/1/1 00:00:00
	sod := sec + 43200 - day*86400
	dt := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(day))
	return &Epoch{
		Year: dt.Year(),
		Doy:  dt.YearDay(),
		Sod:  sod,
	}
}

// Seconds from p to b
func (p *Epoch) Sub(b Epoch) float64 {
	return p.J2000() - b.J2000()
}

func (p *Epoch) Less(b Epoch) bool {
	if p.Year != b.Year {
		return p.Year < b.Year
	}
	if p.Doy != b.Doy {
		return p.Doy < b.Doy
	}
	return p.Sod < b.Sod
}

// Read from string like "2025 123 3600.5"
func (p *Epoch) Set(s string) error {
	var err error
	f := strings.Fields(s)
	if len(f) != 3 {
		return fmt.Errorf("epoch must be \"year doy sod\": %q", s)
	}
	p.Year, err = strconv.Atoi(f[0])
	if err != nil {
		return err
	}
	p.Doy, err = strconv.Atoi(f[1])
	if err != nil {
		return err
	}
	p.Sod, err = strconv.ParseFloat(f[2], 64)
	if err != nil {
		return err
	}
	if p.Doy < 1 || p.Doy > 366 || p.Sod < 0 || p.Sod >= 86401 {
		return fmt.Errorf("epoch out of range: %q", s)
	}
	return nil
}

func (p *Epoch) String() string {
	return fmt.Sprintf("%04d:%03d:%012.6f", p.Year, p.Doy, p.Sod)
}

func (p *Epoch) Type() string {
	return "epoch"
}
