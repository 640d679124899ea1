package jitter

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type FailureReason int

const (
	NoFailure FailureReason = iota
	BelowFloor
	NoCrossing
	FlatInterpolation
	EmptyWindow
)

var failureReasonStrings = []string{
	"ok",
	"peak below amplitude floor",
	"no fraction crossing on rising edge",
	"zero slope at crossing",
	"no samples in search window",
}

func (r FailureReason) String() string {
	if r < NoFailure || r > EmptyWindow {
		return "UNKNOWN"
	}
	return failureReasonStrings[r]
}

// Window restricts the peak search to Start <= t <= Stop. A window with
// Stop <= Start is disabled.
type Window struct {
	Start float64
	Stop  float64
}

func (w Window) Enabled() bool {
	return w.Stop > w.Start
}

// bounds returns the half open sample range [first, last) inside the window.
func (w Window) bounds(time []float64) (int, int) {
	if !w.Enabled() {
		return 0, len(time)
	}
	first := 0
	for first < len(time) && time[first] < w.Start {
		first++
	}
	last := first
	for last < len(time) && time[last] <= w.Stop {
		last++
	}
	return first, last
}

type CFDOptions struct {
	Fraction     float64
	Polarity     Polarity
	MinAmplitude float64
	Window       Window
}

// TimingMeasurement is the dCFD result of one channel in one event. Time is
// NaN when Valid is false.
type TimingMeasurement struct {
	Time   float64
	Valid  bool
	Reason FailureReason
}

func ExtractTiming(wf Waveform, opts CFDOptions) TimingMeasurement {
	t, err := CFDTime(wf, opts)
	if err != nil {
		reason := NoCrossing
		if terr, ok := err.(*TimingError); ok {
			reason = terr.Reason
		}
		return TimingMeasurement{Time: math.NaN(), Reason: reason}
	}
	return TimingMeasurement{Time: t, Valid: true}
}

// CFDTime returns the time at which the leading edge of the pulse crosses
// Fraction of its peak, using linear interpolation between the two samples
// around the crossing. Failures are reported as *TimingError.
func CFDTime(wf Waveform, opts CFDOptions) (float64, error) {
	first, last := opts.Window.bounds(wf.Time)
	if last-first < 1 {
		return math.NaN(), &TimingError{Reason: EmptyWindow}
	}

	sign := opts.Polarity.Sign()
	u := make([]float64, last-first)
	for i := range u {
		u[i] = sign * wf.Voltage[first+i]
	}
	peak := floats.MaxIdx(u)
	if !(u[peak] > opts.MinAmplitude) {
		return math.NaN(), &TimingError{Reason: BelowFloor}
	}
	target := opts.Fraction * u[peak]

	// Walk back from the peak along the samples at or above target; the first
	// sample below target starts the crossing pair.
	i := peak - 1
	for i >= 0 && u[i] >= target {
		i--
	}
	if i < 0 {
		return math.NaN(), &TimingError{Reason: NoCrossing}
	}
	du := u[i+1] - u[i]
	if du == 0 {
		return math.NaN(), &TimingError{Reason: FlatInterpolation}
	}
	t0 := wf.Time[first+i]
	t1 := wf.Time[first+i+1]
	return t0 + (t1-t0)*(target-u[i])/du, nil
}

// ThresholdTime is a leading edge discriminator at a fixed threshold (in
// polarity normalised mV). Its result depends on the pulse amplitude.
func ThresholdTime(wf Waveform, threshold float64, polarity Polarity) (float64, error) {
	sign := polarity.Sign()
	for i := 0; i+1 < len(wf.Voltage); i++ {
		u0 := sign * wf.Voltage[i]
		u1 := sign * wf.Voltage[i+1]
		if u0 < threshold && u1 >= threshold {
			return wf.Time[i] + (wf.Time[i+1]-wf.Time[i])*(threshold-u0)/(u1-u0), nil
		}
	}
	return math.NaN(), &TimingError{Reason: NoCrossing}
}
