// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	m "github.com/mkhts/goancil"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Structure to hold command line argument information
type cmdOpt struct {
	tlmFn    string
	calFn    string
	outFn    string
	logFn    string
	acq      m.AcqType
	start    m.Epoch
	stop     m.Epoch
	ephMode  m.EphMode
	margin   float64
	noHeader bool
	dbg      int

	// Set when given on the command line
	acqSet, startSet, stopSet bool
}

func newRootCommand() *cobra.Command {
	a := &cmdOpt{}
	eOpt := m.NewEphOpt()
	a.ephMode = eOpt.Mode

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [flags] telemetry.txt", filepath.Base(os.Args[0])),
		Short:         "Validate and smooth the ancillary telemetry of one imaging interval",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.tlmFn = args[0]
			a.acqSet = cmd.Flags().Changed("acq")
			a.startSet = cmd.Flags().Changed("start")
			a.stopSet = cmd.Flags().Changed("stop")
			return runApplication(a)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.calFn, "cal", "", "Calibration parameter file (YAML). Defaults are used when omitted.")
	f.StringVarP(&a.outFn, "out", "o", "", "Output file path. If not specified, output to stdout.")
	f.StringVar(&a.logFn, "log", "", "Log file path (rotated). If not specified, log to stderr.")
	f.Var(&a.acq, "acq", "Acquisition type, overriding the telemetry header. earth, lunar, stellar or other")
	f.Var(&a.start, "start", "Interval start, overriding the telemetry header. Enclose in quotes like --start \"2025 123 3600.0\"")
	f.Var(&a.stop, "stop", "Interval stop, overriding the telemetry header. Enclose in quotes like --stop \"2025 123 3900.0\"")
	f.Var(&a.ephMode, "mode", "Ephemeris span. interval (bounded by the interval plus margin) or full (all telemetry)")
	f.Float64Var(&a.margin, "margin", eOpt.Margin, "Ephemeris margin around the interval [s]")
	f.BoolVar(&a.noHeader, "nh", false, "Do not output the header section.")
	f.IntVarP(&a.dbg, "debug", "x", 0, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(most detailed)")
	return cmd
}

// Main application processing
func runApplication(a *cmdOpt) error {
	m.DBG_ = a.dbg

	// Log destination
	if len(a.logFn) > 0 {
		lj := &lumberjack.Logger{
			Filename:   a.logFn,
			MaxSize:    10, // [MB]
			MaxBackups: 3,
			LocalTime:  true,
		}
		defer lj.Close()
		m.LogW = lj
	}

	// Load input files
	tlm, cp, err := loadInputFiles(a)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}
	if m.DBG_ >= 1 {
		m.PrintA("--- telemetry (%s)---\n", filepath.Base(a.tlmFn))
		m.PrintA("%s", tlm.String())
	}

	// Process
	opt := m.NewProcOpt()
	opt.Eph.Mode = a.ephMode
	opt.Eph.Margin = a.margin
	opt.Metrics = gometrics.NewRegistry()
	sol, err := m.Process(tlm, cp, opt)
	if err != nil {
		return fmt.Errorf("Process() failed, err= %w", err)
	}
	printQuality(m.LogW, opt.Metrics)
	if m.DBG_ >= 1 {
		m.PrintA("%s", sol.Eph.String())
		m.PrintA("%s", sol.Att.String())
	}

	// Output results
	out, err := prepareOutput(a)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer closeOutput(out)
	if !a.noHeader {
		printHeader(out, a, tlm)
	}
	printEph(out, sol.Eph)
	printAtt(out, sol.Att)
	return nil
}

// Load input files
func loadInputFiles(a *cmdOpt) (*m.Telemetry, *m.CalParams, error) {
	tf, err := os.Open(a.tlmFn)
	if err != nil {
		return nil, nil, err
	}
	defer tf.Close()
	tlm, err := m.ReadTelemetry(tf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read telemetry file: %w", err)
	}
	if a.acqSet {
		tlm.Acq = a.acq
	}
	if a.startSet {
		tlm.Start = a.start
	}
	if a.stopSet {
		tlm.Stop = a.stop
	}

	cp := m.NewCalParams()
	if len(a.calFn) > 0 {
		cf, err := os.Open(a.calFn)
		if err != nil {
			return nil, nil, err
		}
		defer cf.Close()
		cp, err = m.LoadCalParams(cf)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read calibration file: %w", err)
		}
	}
	return tlm, cp, nil
}

// Prepare output file
func prepareOutput(a *cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(a.outFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	f, err := os.Create(a.outFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// Close output file
func closeOutput(out io.WriteCloser) {
	if out != nil {
		out.Close()
	}
}

// Data quality counters as a table
func printQuality(w io.Writer, r gometrics.Registry) {
	names := []string{}
	counts := map[string]int64{}
	r.Each(func(name string, i any) {
		if c, ok := i.(gometrics.Counter); ok {
			names = append(names, name)
			counts[name] = c.Count()
		}
	})
	slices.Sort(names)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"COUNTER", "VALUE"})
	for _, n := range names {
		tw.AppendRow(table.Row{n, counts[n]})
	}
	tw.Render()
}

func printHeader(w io.Writer, a *cmdOpt, tlm *m.Telemetry) {
	fmt.Fprintf(w, "%% program   : %s\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "%% telemetry : %s\n", filepath.Base(a.tlmFn))
	fmt.Fprintf(w, "%% acq       : %s\n", tlm.Acq.String())
	fmt.Fprintf(w, "%% interval  : %s - %s\n", tlm.Start.String(), tlm.Stop.String())
	fmt.Fprintf(w, "%% eph mode  : %s\n", a.ephMode.String())
}

func printEph(w io.Writer, es *m.EphSeries) {
	fmt.Fprintf(w, "%% ephemeris : %d samples, period %.3f s\n", es.Len(), es.Period)
	fmt.Fprintf(w, "%%  %-24s %14s %14s %14s %12s %12s %12s\n", "EPOCH", "X-ECEF(m)", "Y-ECEF(m)", "Z-ECEF(m)", "VX(m/s)", "VY(m/s)", "VZ(m/s)")
	for i, e := range es.Samples {
		fmt.Fprintf(w, "EPH %s %14.3f %14.3f %14.3f %12.6f %12.6f %12.6f\n", m.EpochFromJ2000(es.Time(i)).String(),
			e.EcefPos.X, e.EcefPos.Y, e.EcefPos.Z, e.EcefVel.X, e.EcefVel.Y, e.EcefVel.Z)
	}
}

func printAtt(w io.Writer, as *m.AttSeries) {
	fmt.Fprintf(w, "%% attitude  : %d samples, period %.3f s\n", as.Len(), as.Period)
	fmt.Fprintf(w, "%%  %-24s %12s %12s %12s %14s %14s %14s %12s %12s %12s %12s\n", "EPOCH", "ROLL(deg)", "PITCH(deg)", "YAW(deg)",
		"ROLLR(deg/s)", "PITCHR(deg/s)", "YAWR(deg/s)", "Q1-ECI", "Q2-ECI", "Q3-ECI", "Q0-ECI")
	for i, s := range as.Samples {
		fmt.Fprintf(w, "ATT %s %12.8f %12.8f %12.8f %14.10f %14.10f %14.10f %12.9f %12.9f %12.9f %12.9f\n", m.EpochFromJ2000(as.Time(i)).String(),
			m.ToDeg(s.Angle.X), m.ToDeg(s.Angle.Y), m.ToDeg(s.Angle.Z), m.ToDeg(s.Rate.X), m.ToDeg(s.Rate.Y), m.ToDeg(s.Rate.Z),
			s.QuatEci.Imag, s.QuatEci.Jmag, s.QuatEci.Kmag, s.QuatEci.Real)
	}
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
