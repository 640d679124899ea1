package jitter

import (
	"math"
	"testing"
)

func summariesWith(amplitudes map[ChannelID]float64) ChannelSummaries {
	s := make(ChannelSummaries, len(amplitudes))
	for ch, a := range amplitudes {
		s[ch] = ChannelSummary{Amplitude: a}
	}
	return s
}

func TestPeakAmplitudeAndExcursion(t *testing.T) {
	v := []float64{1, 3, -5, -120, -60, 2, 0}
	if got := PeakAmplitude(v, Negative); got != 120 {
		t.Errorf("negative peak = %v, want 120", got)
	}
	if got := Excursion(v, Negative); got != 3 {
		t.Errorf("negative excursion = %v, want 3", got)
	}
	if got := PeakAmplitude(v, Positive); got != 3 {
		t.Errorf("positive peak = %v, want 3", got)
	}
	if got := Excursion(v, Positive); got != 120 {
		t.Errorf("positive excursion = %v, want 120", got)
	}
}

func TestAmplitudeCutIsConjunctive(t *testing.T) {
	cut := AmplitudeCut{Thresholds: map[ChannelID]float64{1: 50, 2: 50, 3: 50, 4: 50}}
	tests := []struct {
		name       string
		amplitudes map[ChannelID]float64
		want       Verdict
	}{
		{"all above", map[ChannelID]float64{1: 100, 2: 120, 3: 90, 4: 300}, Accepted},
		{"one below", map[ChannelID]float64{1: 1000, 2: 1000, 3: 30, 4: 1000}, Clipped},
		{"exactly at threshold", map[ChannelID]float64{1: 100, 2: 50, 3: 100, 4: 100}, Clipped},
		{"missing channel", map[ChannelID]float64{1: 100, 2: 100, 3: 100}, Clipped},
		{"all below", map[ChannelID]float64{1: 10, 2: 10, 3: 10, 4: 10}, Clipped},
		{"channel without threshold", map[ChannelID]float64{1: 100, 2: 100, 3: 100, 4: 100, 5: 0.1}, Clipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cut.Qualify(summariesWith(tt.amplitudes)); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmplitudeCutChannelWithoutThreshold(t *testing.T) {
	cut := AmplitudeCut{Thresholds: map[ChannelID]float64{1: 50, 2: 50, 3: 50}}
	for _, low := range []float64{0.1, 500} {
		amplitudes := map[ChannelID]float64{1: 100, 2: 100, 3: 100, 4: low}
		if got := cut.Qualify(summariesWith(amplitudes)); got != Clipped {
			t.Errorf("channel 4 at %v mV with no threshold: got %v, want clipped", low, got)
		}
	}
}

func TestAmplitudeCutEveryChannelBelow(t *testing.T) {
	thresholds := map[ChannelID]float64{1: 40, 2: 60, 3: 80, 4: 100}
	cut := AmplitudeCut{Thresholds: thresholds}
	for low := range thresholds {
		amplitudes := map[ChannelID]float64{1: 500, 2: 500, 3: 500, 4: 500}
		amplitudes[low] = thresholds[low] - 1
		if got := cut.Qualify(summariesWith(amplitudes)); got != Clipped {
			t.Errorf("channel %d below threshold: got %v, want clipped", low, got)
		}
	}
}

func TestNoiseVeto(t *testing.T) {
	summaries := ChannelSummaries{
		1: {Amplitude: 200},
		2: {Amplitude: 200, Excursion: 25},
	}
	thresholds := map[ChannelID]float64{1: 50, 2: 50}

	if got := (AmplitudeCut{Thresholds: thresholds}).Qualify(summaries); got != Accepted {
		t.Errorf("veto disabled: got %v, want accepted", got)
	}
	if got := (AmplitudeCut{Thresholds: thresholds, NoiseThreshold: 20}).Qualify(summaries); got != Noise {
		t.Errorf("veto at 20 mV: got %v, want noise", got)
	}
	if got := (AcceptAll{NoiseThreshold: 20}).Qualify(summaries); got != Noise {
		t.Errorf("accept all with veto: got %v, want noise", got)
	}
	if got := (AcceptAll{}).Qualify(summaries); got != Accepted {
		t.Errorf("accept all: got %v, want accepted", got)
	}
}

func TestAcceptanceStats(t *testing.T) {
	var stats AcceptanceStats
	if stats.Rate() != 0 {
		t.Errorf("empty rate = %v", stats.Rate())
	}
	for _, v := range []Verdict{Accepted, Accepted, Accepted, Clipped, Noise} {
		stats.Add(v)
	}
	if stats.Total != 5 || stats.Accepted != 3 || stats.Clipped != 1 || stats.Noise != 1 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if math.Abs(stats.Rate()-0.6) > 1e-12 {
		t.Errorf("rate = %v, want 0.6", stats.Rate())
	}
}

func TestAutoThresholds(t *testing.T) {
	fill := func(value float64, n int) []float64 {
		x := make([]float64, n)
		for i := range x {
			x[i] = value
		}
		return x
	}
	amplitudes := map[ChannelID][]float64{
		1: append(fill(201, 100), fill(80, 20)...), // top of 1342
		3: fill(201, 100),                          // middle
		4: fill(201, 100),                          // middle
		2: fill(40, 100),                           // bottom, peak below the floor
	}
	cuts := AutoThresholds(amplitudes, "1342", DefaultAutoCutOptions())

	want := map[ChannelID]float64{
		1: 0.9 * 202.5,
		3: 50,
		4: 50,
		2: 50,
	}
	for ch, w := range want {
		if math.Abs(cuts[ch]-w) > 1e-9 {
			t.Errorf("channel %d: cut %v, want %v", ch, cuts[ch], w)
		}
	}
}

func TestLandauPeakEmpty(t *testing.T) {
	if got := LandauPeak([]float64{-5, 600}, DefaultAutoCutOptions()); got != 0 {
		t.Errorf("got %v, want 0 for no amplitude in range", got)
	}
}
