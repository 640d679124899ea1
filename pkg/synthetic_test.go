package jitter

import (
	"math"
	"testing"
)

func TestGeneratorReproducible(t *testing.T) {
	a := NewGenerator(DefaultSyntheticOptions()).Events(5)
	b := NewGenerator(DefaultSyntheticOptions()).Events(5)
	for i := range a {
		for ch, v := range a[i].Voltages {
			for k := range v {
				if v[k] != b[i].Voltages[ch][k] {
					t.Fatalf("event %d channel %d differs at sample %d", i, ch, k)
				}
			}
		}
	}
}

func TestGeneratorPulses(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.ClipFraction = 0
	g := NewGenerator(opts)
	for _, event := range g.Events(50) {
		if err := event.Validate(opts.Channels); err != nil {
			t.Fatal(err)
		}
		if len(event.Time) != 501 {
			t.Fatalf("%d samples, want 501", len(event.Time))
		}
		for ch, v := range event.Voltages {
			amp := PeakAmplitude(v, Negative)
			if amp < opts.AmplitudeMin || amp > opts.AmplitudeMax {
				t.Errorf("event %d channel %d: amplitude %v outside [%v, %v]", event.EventID, ch, amp, opts.AmplitudeMin, opts.AmplitudeMax)
			}
			if ex := Excursion(v, Negative); ex != 0 {
				t.Errorf("event %d channel %d: positive excursion %v", event.EventID, ch, ex)
			}
		}
	}
}

func TestGeneratorClipping(t *testing.T) {
	opts := DefaultSyntheticOptions()
	opts.Seed = 9
	events := NewGenerator(opts).Events(2000)
	clipped := 0
	for _, event := range events {
		low := 0
		for _, v := range event.Voltages {
			if PeakAmplitude(v, Negative) < opts.AmplitudeMin {
				low++
			}
		}
		if low > 1 {
			t.Fatalf("event %d has %d clipped channels", event.EventID, low)
		}
		clipped += low
	}
	if frac := float64(clipped) / 2000; math.Abs(frac-opts.ClipFraction) > 0.04 {
		t.Errorf("clipped fraction %v, want %v", frac, opts.ClipFraction)
	}
}
