package jitter

import (
	"context"
	"fmt"
	"sort"
)

// Result is the outcome of one analysis invocation.
type Result struct {
	Channels       ChannelSet
	Summaries      []EventSummary
	Stats          AcceptanceStats
	Thresholds     map[ChannelID]float64
	TimingFailures map[ChannelID]map[FailureReason]int
	Pairs          []PairVariance
	Solution       Solution
}

// FailureCount returns the number of accepted events in which the timing of
// channel ch could not be extracted.
func (r Result) FailureCount(ch ChannelID) int {
	total := 0
	for _, n := range r.TimingFailures[ch] {
		total += n
	}
	return total
}

// SummarizeEvent runs the timing extractor and the amplitude measurement on
// every channel of one event. It fails only on structurally invalid events.
func SummarizeEvent(event Event, channels ChannelSet, opts CFDOptions) (EventSummary, error) {
	if err := event.Validate(channels); err != nil {
		return EventSummary{}, err
	}
	summary := EventSummary{
		EventID:  event.EventID,
		Channels: make(ChannelSummaries, len(channels)),
	}
	for _, ch := range channels {
		wf, _ := event.Waveform(ch)
		summary.Channels[ch] = ChannelSummary{
			Timing:    ExtractTiming(wf, opts),
			Amplitude: PeakAmplitude(wf.Voltage, opts.Polarity),
			Excursion: Excursion(wf.Voltage, opts.Polarity),
		}
	}
	return summary, nil
}

// Analyse runs the whole chain on a batch of events using NumWorkers
// goroutines for the per event stages.
func Analyse(ctx context.Context, events []Event, config Configuration) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}
	summaries, err := SummarizeEvents(ctx, events, config)
	if err != nil {
		return Result{}, err
	}
	return Reduce(summaries, config)
}

// Reduce qualifies the summarised events and runs the pair variance
// estimation and the jitter solver on the accepted ones. The summaries are
// processed in event order whatever order they arrive in.
func Reduce(summaries []EventSummary, config Configuration) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}
	channels := config.ChannelSet()
	ordered := make([]EventSummary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].EventID < ordered[j].EventID })

	result := Result{
		Channels:       channels,
		Summaries:      ordered,
		Thresholds:     thresholdsFor(ordered, channels, config),
		TimingFailures: make(map[ChannelID]map[FailureReason]int, len(channels)),
	}
	for _, ch := range channels {
		result.TimingFailures[ch] = make(map[FailureReason]int)
	}

	qualifier := NewQualifier(config, result.Thresholds)
	timings := make([]EventTimings, 0, len(ordered))
	for i := range ordered {
		verdict := qualifier.Qualify(ordered[i].Channels)
		ordered[i].Verdict = verdict
		result.Stats.Add(verdict)
		if verdict != Accepted {
			continue
		}
		times := make(map[ChannelID]TimingMeasurement, len(channels))
		for _, ch := range channels {
			tm := ordered[i].Channels[ch].Timing
			times[ch] = tm
			if !tm.Valid {
				result.TimingFailures[ch][tm.Reason]++
			}
		}
		timings = append(timings, EventTimings{EventID: ordered[i].EventID, Times: times})
	}
	if config.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Collimation (%v): %v", config.Collimation, result.Stats), "pipeline")
	}

	result.Pairs = EstimatePairVariances(timings, config.SelectedPairs(), config.VarianceOptions())
	for _, pv := range result.Pairs {
		if !pv.Reliable {
			logger.Info(fmt.Sprintf("Pair %v has %d events, below the floor of %d: unreliable", pv.Pair, pv.N, config.MinEventsPerPair), "pipeline")
		}
		if config.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Pair %v: sigma %.4f ns from %d events (%v)", pv.Pair, pv.Sigma, pv.N, pv.Method), "pipeline")
		}
	}

	solution, err := Solve(result.Pairs, channels, SolveOptions{ExcludeUnreliable: config.ExcludeUnreliable})
	if err != nil {
		return result, fmt.Errorf("error solving jitter system: %w", err)
	}
	result.Solution = solution
	return result, nil
}

func thresholdsFor(summaries []EventSummary, channels ChannelSet, config Configuration) map[ChannelID]float64 {
	thresholds := make(map[ChannelID]float64, len(channels))
	if config.Collimation != SoftwareCollimation {
		return thresholds
	}
	if !config.AutoThresholds {
		for _, ch := range channels {
			if t, ok := config.Thresholds[ch]; ok {
				thresholds[ch] = t
			}
		}
		return thresholds
	}

	amplitudes := make(map[ChannelID][]float64, len(channels))
	for _, s := range summaries {
		for _, ch := range channels {
			if cs, ok := s.Channels[ch]; ok {
				amplitudes[ch] = append(amplitudes[ch], cs.Amplitude)
			}
		}
	}
	opts := DefaultAutoCutOptions()
	opts.Floor = config.CutFloor
	thresholds = AutoThresholds(amplitudes, config.StackConfig, opts)
	for _, ch := range channels {
		if _, ok := thresholds[ch]; !ok {
			thresholds[ch] = config.CutFloor
		}
		if config.Verbosity > 0 {
			logger.Info(fmt.Sprintf("Channel %d: automatic cut %.1f mV", ch, thresholds[ch]), "pipeline")
		}
	}
	return thresholds
}

// Accumulator collects events one at a time, for sources that deliver events
// incrementally. Result can be called at any point; it reduces every summary
// seen so far, so calling it every k events of an n event run costs O(n^2/k).
// The automatic thresholds and the Gaussian fits need the whole sample, which
// rules out running totals.
type Accumulator struct {
	config    Configuration
	channels  ChannelSet
	opts      CFDOptions
	summaries []EventSummary
}

func NewAccumulator(config Configuration) (*Accumulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Accumulator{
		config:   config,
		channels: config.ChannelSet(),
		opts:     config.CFDOptions(),
	}, nil
}

func (a *Accumulator) Add(event Event) error {
	summary, err := SummarizeEvent(event, a.channels, a.opts)
	if err != nil {
		return err
	}
	a.summaries = append(a.summaries, summary)
	return nil
}

func (a *Accumulator) Len() int {
	return len(a.summaries)
}

func (a *Accumulator) Summaries() []EventSummary {
	return a.summaries
}

func (a *Accumulator) Result() (Result, error) {
	return Reduce(a.summaries, a.config)
}
