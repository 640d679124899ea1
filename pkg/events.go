package jitter

import (
	"fmt"
	"sort"
)

// ChannelID identifies one oscilloscope channel. In the standard setup the
// channel number equals the detector number in the stack configuration.
type ChannelID uint16

// ChannelSet is the sorted list of channels taking part in an analysis.
type ChannelSet []ChannelID

// NewChannelSet sorts and deduplicates the given channels.
func NewChannelSet(channels ...ChannelID) ChannelSet {
	set := make(ChannelSet, 0, len(channels))
	seen := make(map[ChannelID]bool, len(channels))
	for _, ch := range channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		set = append(set, ch)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Index returns the position of ch in the set, or -1.
func (s ChannelSet) Index(ch ChannelID) int {
	for i, c := range s {
		if c == ch {
			return i
		}
	}
	return -1
}

func (s ChannelSet) Contains(ch ChannelID) bool {
	return s.Index(ch) >= 0
}

// Waveform is a single channel trace. Time is in ns, Voltage in mV.
type Waveform struct {
	Time    []float64
	Voltage []float64
}

// Event holds the traces of all channels for one trigger. All channels share
// the same time axis.
type Event struct {
	EventID  int
	Time     []float64
	Voltages map[ChannelID][]float64
}

// Waveform returns the trace of channel ch. The returned slices alias the
// event data and must not be modified.
func (e Event) Waveform(ch ChannelID) (Waveform, bool) {
	v, ok := e.Voltages[ch]
	if !ok {
		return Waveform{}, false
	}
	return Waveform{Time: e.Time, Voltage: v}, true
}

// Validate checks that the event is structurally usable for the given
// channels: at least two samples, strictly increasing time, and one trace of
// matching length per channel.
func (e Event) Validate(channels ChannelSet) error {
	if len(channels) == 0 {
		return ErrEmptyChannelSet
	}
	if len(e.Time) < 2 {
		return &InvalidEventError{EventID: e.EventID, Reason: fmt.Sprintf("time axis has %d samples, need at least 2", len(e.Time))}
	}
	for i := 1; i < len(e.Time); i++ {
		if !(e.Time[i] > e.Time[i-1]) {
			return &InvalidEventError{EventID: e.EventID, Reason: fmt.Sprintf("time axis not strictly increasing at sample %d", i)}
		}
	}
	for _, ch := range channels {
		v, ok := e.Voltages[ch]
		if !ok {
			return &InvalidEventError{EventID: e.EventID, Channel: ch, Reason: "missing channel"}
		}
		if len(v) != len(e.Time) {
			return &InvalidEventError{EventID: e.EventID, Channel: ch,
				Reason: fmt.Sprintf("voltage length %d does not match time length %d", len(v), len(e.Time))}
		}
	}
	return nil
}

// ChannelSummary is the per channel result of stages 2 and 3 for one event.
type ChannelSummary struct {
	Timing    TimingMeasurement
	Amplitude float64
	Excursion float64
}

// ChannelSummaries maps every analysed channel of an event to its summary.
type ChannelSummaries map[ChannelID]ChannelSummary

// EventSummary is what the per event workers hand to the reduction stage.
type EventSummary struct {
	EventID  int
	Channels ChannelSummaries
	Verdict  Verdict
}

// EventTimings is the timing view of an accepted event used by the pair
// variance estimator.
type EventTimings struct {
	EventID int
	Times   map[ChannelID]TimingMeasurement
}
