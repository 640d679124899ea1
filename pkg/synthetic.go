package jitter

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticOptions describes trapezoidal scintillator-like pulses. Each
// channel is shifted by a Gaussian offset of width Sigma[ch] on top of a
// common trigger offset shared by all channels of an event.
type SyntheticOptions struct {
	Channels     ChannelSet
	Sigma        map[ChannelID]float64 // ns
	Polarity     Polarity
	CommonSigma  float64 // ns
	Step         float64 // ns
	Duration     float64 // ns
	PulseStart   float64 // ns
	Rise         float64 // ns
	Flat         float64 // ns
	Fall         float64 // ns
	AmplitudeMin float64 // mV
	AmplitudeMax float64 // mV
	ClipFraction float64
	ClipMin      float64 // mV
	ClipMax      float64 // mV
	NoiseRMS     float64 // mV
	Seed         uint64
}

func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Channels:     NewChannelSet(1, 2, 3, 4),
		Sigma:        map[ChannelID]float64{1: 1.0, 2: 0.5, 3: 0.3, 4: 1.2},
		Polarity:     Negative,
		CommonSigma:  1.0,
		Step:         0.2,
		Duration:     100,
		PulseStart:   40,
		Rise:         4,
		Flat:         5,
		Fall:         20,
		AmplitudeMin: 100,
		AmplitudeMax: 300,
		ClipFraction: 0.2,
		ClipMin:      20,
		ClipMax:      40,
		Seed:         1,
	}
}

// Generator produces reproducible synthetic events.
type Generator struct {
	opts      SyntheticOptions
	rnd       *rand.Rand
	common    distuv.Normal
	offsets   map[ChannelID]distuv.Normal
	amplitude distuv.Uniform
	clipped   distuv.Uniform
	noise     distuv.Normal
	time      []float64
	next      int
}

func NewGenerator(opts SyntheticOptions) *Generator {
	rnd := rand.New(rand.NewSource(opts.Seed))
	g := &Generator{
		opts:      opts,
		rnd:       rnd,
		common:    distuv.Normal{Mu: 0, Sigma: opts.CommonSigma, Src: rnd},
		offsets:   make(map[ChannelID]distuv.Normal, len(opts.Channels)),
		amplitude: distuv.Uniform{Min: opts.AmplitudeMin, Max: opts.AmplitudeMax, Src: rnd},
		clipped:   distuv.Uniform{Min: opts.ClipMin, Max: opts.ClipMax, Src: rnd},
		noise:     distuv.Normal{Mu: 0, Sigma: opts.NoiseRMS, Src: rnd},
	}
	for _, ch := range opts.Channels {
		g.offsets[ch] = distuv.Normal{Mu: 0, Sigma: opts.Sigma[ch], Src: rnd}
	}
	n := int(math.Round(opts.Duration/opts.Step)) + 1
	g.time = make([]float64, n)
	for i := range g.time {
		g.time[i] = float64(i) * opts.Step
	}
	return g
}

// shift draws a Normal value, returning 0 for a zero width.
func shift(d distuv.Normal) float64 {
	if d.Sigma <= 0 {
		return 0
	}
	return d.Rand()
}

// Arrivals draws the pulse start times of the next event, advancing the
// event counter, without building the traces.
func (g *Generator) Arrivals() (int, map[ChannelID]float64) {
	id := g.next
	g.next++
	common := shift(g.common)
	starts := make(map[ChannelID]float64, len(g.opts.Channels))
	for _, ch := range g.opts.Channels {
		starts[ch] = g.opts.PulseStart + common + shift(g.offsets[ch])
	}
	return id, starts
}

// Next builds one event. With probability ClipFraction one channel gets a
// low amplitude, as for a track crossing a detector corner.
func (g *Generator) Next() Event {
	id, starts := g.Arrivals()
	amplitudes := make(map[ChannelID]float64, len(g.opts.Channels))
	for _, ch := range g.opts.Channels {
		amplitudes[ch] = g.amplitude.Rand()
	}
	if g.opts.ClipFraction > 0 && g.rnd.Float64() < g.opts.ClipFraction {
		ch := g.opts.Channels[g.rnd.Intn(len(g.opts.Channels))]
		amplitudes[ch] = g.clipped.Rand()
	}

	sign := g.opts.Polarity.Sign()
	voltages := make(map[ChannelID][]float64, len(g.opts.Channels))
	for _, ch := range g.opts.Channels {
		v := make([]float64, len(g.time))
		for i, t := range g.time {
			v[i] = sign * amplitudes[ch] * g.shape(t-starts[ch])
			if g.opts.NoiseRMS > 0 {
				v[i] += g.noise.Rand()
			}
		}
		voltages[ch] = v
	}
	return Event{EventID: id, Time: g.time, Voltages: voltages}
}

func (g *Generator) Events(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = g.Next()
	}
	return events
}

// Timings draws n events directly as valid arrival times, for studies that
// only exercise the variance estimation and the solver.
func (g *Generator) Timings(n int) []EventTimings {
	timings := make([]EventTimings, n)
	for i := range timings {
		id, starts := g.Arrivals()
		times := make(map[ChannelID]TimingMeasurement, len(starts))
		for ch, t := range starts {
			times[ch] = TimingMeasurement{Time: t, Valid: true}
		}
		timings[i] = EventTimings{EventID: id, Times: times}
	}
	return timings
}

// shape is the unit trapezoid as a function of the time since pulse start.
func (g *Generator) shape(dt float64) float64 {
	o := g.opts
	switch {
	case dt <= 0:
		return 0
	case dt < o.Rise:
		return dt / o.Rise
	case dt <= o.Rise+o.Flat:
		return 1
	case dt < o.Rise+o.Flat+o.Fall:
		return 1 - (dt-o.Rise-o.Flat)/o.Fall
	}
	return 0
}
