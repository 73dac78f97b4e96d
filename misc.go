// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.14
//

package goancil

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// Bring an angle into (-pi, pi]
func WrapPi(a float64) float64 {
	a = math.Mod(a+PI, 2*PI)
	if a <= 0 {
		a += 2 * PI
	}
	return a - PI
}

// ------------------------------------
// Errors
// ------------------------------------

var (
	ErrNoValidData = errors.New("no valid data")                       // Not enough usable telemetry
	ErrCoverage    = errors.New("telemetry does not cover the interval") // Telemetry and interval don't overlap enough
	ErrSingular    = errors.New("singular matrix")                      // Kalman recursion can't continue
)

// ------------------------------------
// Debug print function
// ------------------------------------

// Destination of all diagnostic output
var LogW io.Writer = os.Stderr

func PrintMat(X mat.Matrix) {
	r, c := X.Dims()
	fmt.Fprintf(LogW, "(%d x %d)\n", r, c)
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	fmt.Fprintf(LogW, "%v\n", fa)
}

func PrintA(format string, a ...any) {
	fmt.Fprintf(LogW, format, a...)
}

func PrintAIf(cond bool, format string, a ...any) {
	if cond {
		PrintA(format, a...)
	}
}

func PrintB(t float64, format string, a ...any) {
	fmt.Fprintf(LogW, EpochFromJ2000(t).String()+"\t"+format, a...)
}

// Debug display level
var DBG_ int

// Debug display
func PrintD(v int, format string, a ...any) {
	PrintAIf(DBG_ >= v, format, a...)
}

// Warnings are always displayed
func PrintW(format string, a ...any) {
	PrintA("warn: "+format, a...)
}

func PrintE(err error) {
	fmt.Fprintf(LogW, "err=%s\n", err.Error())
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// Acquisition type of the imaging interval
type AcqType int

const (
	EARTH = iota
	LUNAR
	STELLAR
	OTHER
)

func (p *AcqType) Set(s string) error {
	switch strings.ToLower(s) {
	case "earth", "0":
		*p = EARTH
	case "lunar", "1":
		*p = LUNAR
	case "stellar", "2":
		*p = STELLAR
	case "other", "3":
		*p = OTHER
	default:
		return fmt.Errorf("unknown acquisition type: %s", s)
	}
	return nil
}

func (p *AcqType) String() string {
	switch *p {
	case EARTH:
		return "EARTH"
	case LUNAR:
		return "LUNAR"
	case STELLAR:
		return "STELLAR"
	case OTHER:
		return "OTHER"
	default:
		return "UNKNOWN!"
	}
}

func (p *AcqType) Type() string {
	return "acqType"
}

// Celestial acquisitions look away from the Earth, so the orbital frame does not apply
func (p AcqType) IsCelestial() bool {
	return p == LUNAR || p == STELLAR
}

// Interval coverage is mandatory for these acquisitions
func (p AcqType) NeedsCoverage() bool {
	return p == EARTH || p == LUNAR || p == STELLAR
}

// Ephemeris processing variant (0: bounded by the imaging interval, 1: whole telemetry span)
type EphMode int

const (
	EPH_INTERVAL = iota
	EPH_FULL
)

func (p *EphMode) Set(s string) error {
	switch strings.ToLower(s) {
	case "interval", "0":
		*p = EPH_INTERVAL
	case "full", "1":
		*p = EPH_FULL
	default:
		return fmt.Errorf("unknown ephemeris mode: %s", s)
	}
	return nil
}

func (p *EphMode) String() string {
	switch *p {
	case EPH_INTERVAL:
		return "INTERVAL"
	case EPH_FULL:
		return "FULL"
	default:
		return "UNKNOWN!"
	}
}

func (p *EphMode) Type() string {
	return "ephMode"
}
