// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package goancil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func genImuBuffer(n int, t0 float64) *ImuBuffer {
	b := &ImuBuffer{
		Time:  make([]float64, n),
		Data:  make([]r3.Vec, n),
		Valid: make([]bool, n),
	}
	for i := range n {
		b.Time[i] = t0 + float64(i)*IMU_PERIOD
		b.Data[i] = r3.Vec{X: float64(i)}
		b.Valid[i] = true
	}
	return b
}

func TestWindowImuInclusive(t *testing.T) {
	buf := genImuBuffer(100, testT0)
	buf.Valid[20] = false
	buf.Valid[70] = false
	start, stop := buf.Time[10], buf.Time[60]

	w, err := WindowImu(buf, start, stop)
	require.NoError(t, err)
	require.Equal(t, 51, w.Num)
	require.Equal(t, 51, buf.Len())
	require.Equal(t, 1, w.NumInvalid)
	require.Equal(t, start, w.Epoch)
	require.Equal(t, start, buf.Time[0])
	require.Equal(t, stop, buf.Time[buf.Len()-1])
	require.Equal(t, 10.0, buf.Data[0].X)
	require.False(t, buf.Valid[10])
}

func TestWindowImuWiderThanData(t *testing.T) {
	buf := genImuBuffer(100, testT0)
	w, err := WindowImu(buf, testT0-10, testT0+10)
	require.NoError(t, err)
	require.Equal(t, 100, w.Num)
	require.Equal(t, testT0, w.Epoch)
}

func TestWindowImuNoCoverage(t *testing.T) {
	buf := genImuBuffer(100, testT0)
	_, err := WindowImu(buf, testT0+100, testT0+200)
	require.ErrorIs(t, err, ErrCoverage)

	buf = genImuBuffer(100, testT0)
	_, err = WindowImu(buf, testT0-200, testT0-100)
	require.ErrorIs(t, err, ErrCoverage)

	_, err = WindowImu(&ImuBuffer{}, testT0, testT0+1)
	require.ErrorIs(t, err, ErrCoverage)
}

func TestWindowQuat(t *testing.T) {
	opt := NewQuatCheckOpt()
	qbuf := genQuatBuffer(4, testT0) // 20 s
	ibuf := genImuBuffer(500, testT0+2.0)
	iw, err := WindowImu(ibuf, testT0+2.0, testT0+15.0)
	require.NoError(t, err)

	qw, err := WindowQuat(qbuf, iw.Epoch, ibuf.Time[ibuf.Len()-1], iw.Num, IMU_PERIOD, opt)
	require.NoError(t, err)
	require.InDelta(t, testT0+2.0, qbuf.Time[0], 1e-5)
	require.InDelta(t, testT0+11.98, ibuf.Time[ibuf.Len()-1], 1e-5)
	// 500 IMU samples scale to 100 quaternion periods; the end is pulled back within the IMU stop
	require.Equal(t, 100, qw.Num)
	require.InDelta(t, testT0+11.9, qbuf.Time[qbuf.Len()-1], 1e-5)
	require.Zero(t, qw.NumInvalid)
}

func TestWindowQuatStopsAtGap(t *testing.T) {
	opt := NewQuatCheckOpt()
	qbuf := genQuatBuffer(2, testT0)
	// Irregular spacing at the end
	qbuf.Time[99] += 0.05
	ibuf := genImuBuffer(500, testT0)

	qw, err := WindowQuat(qbuf, ibuf.Time[0], ibuf.Time[ibuf.Len()-1], ibuf.Len(), IMU_PERIOD, opt)
	require.NoError(t, err)
	require.Equal(t, 99, qw.Num)
	require.InDelta(t, testT0+9.8, qbuf.Time[qbuf.Len()-1], 1e-5)
}

func TestWindowQuatNoCoverage(t *testing.T) {
	opt := NewQuatCheckOpt()
	qbuf := genQuatBuffer(1, testT0)
	_, err := WindowQuat(qbuf, testT0+100, testT0+110, 500, IMU_PERIOD, opt)
	require.ErrorIs(t, err, ErrCoverage)

	qbuf = genQuatBuffer(1, testT0)
	for i := range qbuf.Valid {
		qbuf.Valid[i] = false
	}
	_, err = WindowQuat(qbuf, testT0, testT0+4.9, 245, IMU_PERIOD, opt)
	require.ErrorIs(t, err, ErrNoValidData)
}

func TestImuBufferPeriod(t *testing.T) {
	b := genImuBuffer(101, testT0)
	require.InDelta(t, IMU_PERIOD, b.Period(), 1e-9)

	// Slow clock
	for i := range b.Time {
		b.Time[i] = testT0 + float64(i)*IMU_PERIOD*1.001
	}
	require.InDelta(t, IMU_PERIOD*1.001, b.Period(), 1e-9)

	require.Equal(t, IMU_PERIOD, genImuBuffer(1, testT0).Period())
}
