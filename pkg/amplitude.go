package jitter

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Verdict int

const (
	Accepted Verdict = iota
	Clipped
	Noise
)

var verdictStrings = []string{
	"accepted",
	"clipped",
	"noise",
}

func (v Verdict) String() string {
	if v < Accepted || v > Noise {
		return "UNKNOWN"
	}
	return verdictStrings[v]
}

// PeakAmplitude is the largest sample in the pulse direction, in the units of
// the voltage array. It is negative when the trace never leaves the baseline
// in that direction.
func PeakAmplitude(voltage []float64, polarity Polarity) float64 {
	sign := polarity.Sign()
	peak := sign * voltage[0]
	for _, v := range voltage[1:] {
		if sign*v > peak {
			peak = sign * v
		}
	}
	return peak
}

// Excursion is the largest sample against the pulse direction. Large values
// point to electronic pickup rather than scintillation light.
func Excursion(voltage []float64, polarity Polarity) float64 {
	if polarity == Negative {
		return PeakAmplitude(voltage, Positive)
	}
	return PeakAmplitude(voltage, Negative)
}

// Qualifier decides whether an event enters the pair statistics.
type Qualifier interface {
	Qualify(ChannelSummaries) Verdict
}

// AmplitudeCut is the software collimation ("Landau cut"): an event is
// accepted only if every channel is above its threshold. Channels missing
// from either side reject the event.
type AmplitudeCut struct {
	Thresholds     map[ChannelID]float64
	NoiseThreshold float64
}

func (c AmplitudeCut) Qualify(summaries ChannelSummaries) Verdict {
	if isNoise(summaries, c.NoiseThreshold) {
		return Noise
	}
	if len(c.Thresholds) == 0 {
		return Clipped
	}
	for ch, threshold := range c.Thresholds {
		s, ok := summaries[ch]
		if !ok || !(s.Amplitude > threshold) {
			return Clipped
		}
	}
	// a channel with no threshold cannot pass the cut
	for ch := range summaries {
		if _, ok := c.Thresholds[ch]; !ok {
			return Clipped
		}
	}
	return Accepted
}

// AcceptAll is used with geometric collimation, where the pair selection
// already restricts the trajectories.
type AcceptAll struct {
	NoiseThreshold float64
}

func (a AcceptAll) Qualify(summaries ChannelSummaries) Verdict {
	if isNoise(summaries, a.NoiseThreshold) {
		return Noise
	}
	return Accepted
}

func isNoise(summaries ChannelSummaries, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	for _, s := range summaries {
		if s.Excursion > threshold {
			return true
		}
	}
	return false
}

// NewQualifier builds the qualifier for the configured collimation policy.
func NewQualifier(config Configuration, thresholds map[ChannelID]float64) Qualifier {
	if config.Collimation == GeometricCollimation {
		return AcceptAll{NoiseThreshold: config.NoiseThreshold}
	}
	return AmplitudeCut{Thresholds: thresholds, NoiseThreshold: config.NoiseThreshold}
}

type AcceptanceStats struct {
	Total    int
	Accepted int
	Clipped  int
	Noise    int
}

func (s *AcceptanceStats) Add(v Verdict) {
	s.Total++
	switch v {
	case Accepted:
		s.Accepted++
	case Clipped:
		s.Clipped++
	case Noise:
		s.Noise++
	}
}

func (s AcceptanceStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Total)
}

func (s AcceptanceStats) String() string {
	return fmt.Sprintf("kept %d / %d events (%.1f%%), clipped %d, noise %d",
		s.Accepted, s.Total, 100*s.Rate(), s.Clipped, s.Noise)
}

type AutoCutOptions struct {
	Floor        float64 // mV
	Range        float64 // histogram upper edge, mV
	Bins         int
	EdgeFraction float64
}

func DefaultAutoCutOptions() AutoCutOptions {
	return AutoCutOptions{
		Floor:        50,
		Range:        500,
		Bins:         100,
		EdgeFraction: 0.9,
	}
}

// LandauPeak returns the centre of the most populated amplitude bin, or 0 if
// no amplitude falls in the histogram range.
func LandauPeak(amplitudes []float64, opts AutoCutOptions) float64 {
	x := make([]float64, 0, len(amplitudes))
	for _, a := range amplitudes {
		if a >= 0 && a < opts.Range {
			x = append(x, a)
		}
	}
	if len(x) == 0 {
		return 0
	}
	sort.Float64s(x)
	dividers := make([]float64, opts.Bins+1)
	floats.Span(dividers, 0, opts.Range)
	dividers[opts.Bins] = opts.Range
	counts := stat.Histogram(nil, dividers, x, nil)
	k := floats.MaxIdx(counts)
	return (dividers[k] + dividers[k+1]) / 2
}

// AutoThresholds derives per channel cuts from the amplitude spectra. Top and
// bottom detectors of the stack see corner clipping and are cut at
// EdgeFraction of their Landau peak; middle detectors only get the floor.
func AutoThresholds(amplitudes map[ChannelID][]float64, stack string, opts AutoCutOptions) map[ChannelID]float64 {
	cuts := make(map[ChannelID]float64, len(amplitudes))
	for ch, amps := range amplitudes {
		cut := opts.Floor
		position := StackPosition(ch, stack)
		if position == 0 || (position > 0 && position == len(stack)-1) {
			peak := LandauPeak(amps, opts)
			if edge := opts.EdgeFraction * peak; edge > cut {
				cut = edge
			}
		}
		cuts[ch] = cut
	}
	return cuts
}
