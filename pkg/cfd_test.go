package jitter

import (
	"errors"
	"math"
	"testing"
)

// trapezoid builds a negative pulse sampled every 0.2 ns over 0-100 ns:
// linear 4 ns rise starting at start, 5 ns flat top, 20 ns fall.
func trapezoid(start, amplitude float64) Waveform {
	n := 501
	wf := Waveform{Time: make([]float64, n), Voltage: make([]float64, n)}
	for i := range wf.Time {
		t := float64(i) * 0.2
		wf.Time[i] = t
		dt := t - start
		var shape float64
		switch {
		case dt <= 0:
			shape = 0
		case dt < 4:
			shape = dt / 4
		case dt <= 9:
			shape = 1
		case dt < 29:
			shape = 1 - (dt-9)/20
		}
		wf.Voltage[i] = -amplitude * shape
	}
	return wf
}

func negate(wf Waveform) Waveform {
	out := Waveform{Time: wf.Time, Voltage: make([]float64, len(wf.Voltage))}
	for i, v := range wf.Voltage {
		out.Voltage[i] = -v
	}
	return out
}

func TestCFDTimeInterpolation(t *testing.T) {
	wf := Waveform{
		Time:    []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Voltage: []float64{0, 0, -2, -4, -6, -8, -10, -10, -5, 0},
	}
	tests := []struct {
		fraction float64
		want     float64
	}{
		{0.3, 2.5},
		{0.5, 3.5},
		{0.1, 1.5},
		{0.9, 5.5},
	}
	for _, tt := range tests {
		opts := CFDOptions{Fraction: tt.fraction, Polarity: Negative, MinAmplitude: 0.5}
		got, err := CFDTime(wf, opts)
		if err != nil {
			t.Fatalf("fraction %v: unexpected error %v", tt.fraction, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("fraction %v: got %v, want %v", tt.fraction, got, tt.want)
		}
	}
}

func TestCFDTimePolarity(t *testing.T) {
	wf := trapezoid(40.05, 150)
	neg, err := CFDTime(wf, CFDOptions{Fraction: 0.3, Polarity: Negative, MinAmplitude: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	pos, err := CFDTime(negate(wf), CFDOptions{Fraction: 0.3, Polarity: Positive, MinAmplitude: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if neg != pos {
		t.Errorf("negative pulse gives %v, mirrored positive pulse gives %v", neg, pos)
	}
	if want := 40.05 + 0.3*4; math.Abs(neg-want) > 1e-9 {
		t.Errorf("got %v, want %v", neg, want)
	}
}

func TestCFDTimeWalkIndependence(t *testing.T) {
	opts := CFDOptions{Fraction: 0.3, Polarity: Negative, MinAmplitude: 0.5}
	small := trapezoid(40.05, 50)
	large := trapezoid(40.05, 500)

	tSmall, err := CFDTime(small, opts)
	if err != nil {
		t.Fatal(err)
	}
	tLarge, err := CFDTime(large, opts)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tSmall-tLarge) > 1e-9 {
		t.Errorf("CFD time depends on amplitude: %v vs %v", tSmall, tLarge)
	}

	leSmall, err := ThresholdTime(small, 20, Negative)
	if err != nil {
		t.Fatal(err)
	}
	leLarge, err := ThresholdTime(large, 20, Negative)
	if err != nil {
		t.Fatal(err)
	}
	if walk := leSmall - leLarge; walk < 1 {
		t.Errorf("leading edge walk %v ns, expected more than 1 ns", walk)
	}
}

func TestCFDTimeWindow(t *testing.T) {
	wf := trapezoid(40.05, 100)
	// pickup spike far from the pulse, larger than the pulse itself
	wf.Voltage[450] = -400

	opts := CFDOptions{Fraction: 0.3, Polarity: Negative, MinAmplitude: 0.5}
	unwindowed, err := CFDTime(wf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if unwindowed < 80 {
		t.Errorf("without a window the spike should win, got %v", unwindowed)
	}

	opts.Window = Window{Start: 20, Stop: 70}
	got, err := CFDTime(wf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if want := 41.25; math.Abs(got-want) > 1e-9 {
		t.Errorf("windowed: got %v, want %v", got, want)
	}
}

func TestCFDTimeFailures(t *testing.T) {
	flat := Waveform{Time: []float64{0, 1, 2, 3}, Voltage: []float64{0, 0, 0, 0}}
	falling := Waveform{Time: []float64{0, 1, 2, 3}, Voltage: []float64{-10, -8, -4, -1}}

	tests := []struct {
		name   string
		wf     Waveform
		window Window
		want   FailureReason
	}{
		{"flat baseline", flat, Window{}, BelowFloor},
		{"peak at first sample", falling, Window{}, NoCrossing},
		{"window outside trace", falling, Window{Start: 10, Stop: 20}, EmptyWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := CFDOptions{Fraction: 0.3, Polarity: Negative, MinAmplitude: 0.5, Window: tt.window}
			_, err := CFDTime(tt.wf, opts)
			var terr *TimingError
			if !errors.As(err, &terr) {
				t.Fatalf("expected *TimingError, got %v", err)
			}
			if terr.Reason != tt.want {
				t.Errorf("got reason %v, want %v", terr.Reason, tt.want)
			}

			tm := ExtractTiming(tt.wf, opts)
			if tm.Valid || !math.IsNaN(tm.Time) || tm.Reason != tt.want {
				t.Errorf("ExtractTiming = %+v, want invalid with reason %v", tm, tt.want)
			}
		})
	}
}

func TestExtractTimingValid(t *testing.T) {
	tm := ExtractTiming(trapezoid(30, 80), CFDOptions{Fraction: 0.5, Polarity: Negative, MinAmplitude: 0.5})
	if !tm.Valid || tm.Reason != NoFailure {
		t.Fatalf("expected a valid timing, got %+v", tm)
	}
	if want := 32.0; math.Abs(tm.Time-want) > 1e-9 {
		t.Errorf("got %v, want %v", tm.Time, want)
	}
}
