package jitter

import (
	"encoding/json"
	"fmt"
	"math"
)

type Polarity int

const (
	PolarityUnset Polarity = iota
	Negative
	Positive
)

var polarityStrings = []string{
	"unset",
	"negative",
	"positive",
}

func (p Polarity) String() string {
	if p < PolarityUnset || p > Positive {
		return "UNKNOWN"
	}
	return polarityStrings[p]
}

// Sign maps voltages onto the pulse direction: the pulse is positive going
// after multiplication by Sign.
func (p Polarity) Sign() float64 {
	if p == Negative {
		return -1
	}
	return 1
}

func (p Polarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Polarity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range polarityStrings {
		if i != int(PolarityUnset) && v == s {
			*p = Polarity(i)
			return nil
		}
	}
	return fmt.Errorf("invalid Polarity: %s", s)
}

// Collimation selects how near normal incidence events are obtained. Software
// collimation applies the amplitude cut; geometric collimation relies on the
// pair selection (usually the two middle detectors) and accepts every event.
type Collimation int

const (
	SoftwareCollimation Collimation = iota
	GeometricCollimation
)

var collimationStrings = []string{
	"software",
	"geometric",
}

func (c Collimation) String() string {
	if c < SoftwareCollimation || c > GeometricCollimation {
		return "UNKNOWN"
	}
	return collimationStrings[c]
}

func (c Collimation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Collimation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range collimationStrings {
		if v == s {
			*c = Collimation(i)
			return nil
		}
	}
	return fmt.Errorf("invalid Collimation: %s", s)
}

type Configuration struct {
	// Analysis
	Fraction          float64               `json:"fraction"`
	Polarity          Polarity              `json:"polarity"`
	Channels          []ChannelID           `json:"channels"`
	Thresholds        map[ChannelID]float64 `json:"thresholds"`
	AutoThresholds    bool                  `json:"auto_thresholds"`
	CutFloor          float64               `json:"cut_floor"`
	StackConfig       string                `json:"stack_config"`
	Collimation       Collimation           `json:"collimation"`
	Pairs             []Pair                `json:"pairs"`
	RoiStart          float64               `json:"roi_start"`
	RoiStop           float64               `json:"roi_stop"`
	MinAmplitude      float64               `json:"min_amplitude"`
	NoiseThreshold    float64               `json:"noise_threshold"`
	MinEventsPerPair  int                   `json:"min_events_per_pair"`
	ExcludeUnreliable bool                  `json:"exclude_unreliable"`
	VarianceMethod    VarianceMethod        `json:"variance_method"`
	HistogramBins     int                   `json:"histogram_bins"`
	TrimSigma         float64               `json:"trim_sigma"`
	MinFitEvents      int                   `json:"min_fit_events"`

	// Execution
	NumWorkers int `json:"num_workers"`
	Verbosity  int `json:"verbosity"`
	MaxEvents  int `json:"max_events"`
	Skip       int `json:"skip"`

	// Input / output
	FileIn           string `json:"file_in"`
	FileOut          string `json:"file_out"`
	WriteData        bool   `json:"write_data"`
	CompressionLevel int    `json:"compression_level"`

	// Run conditions database
	RunNumber int    `json:"run_number"`
	NoDB      bool   `json:"no_db"`
	Host      string `json:"host"`
	User      string `json:"user"`
	Passwd    string `json:"pass"`
	DBName    string `json:"dbname"`

	// Online analysis
	Brokers     []string `json:"brokers"`
	Topic       string   `json:"topic"`
	Group       string   `json:"group"`
	ReportEvery int      `json:"report_every"`
}

// DefaultConfiguration returns the values used by the original analysis of
// the 4-fold cosmic runs. Polarity is left unset on purpose: it must be given.
func DefaultConfiguration() Configuration {
	return Configuration{
		Fraction:         0.3,
		Channels:         []ChannelID{1, 2, 3, 4},
		Thresholds:       map[ChannelID]float64{},
		CutFloor:         50,
		StackConfig:      "1234",
		Collimation:      SoftwareCollimation,
		MinAmplitude:     0.5,
		NoiseThreshold:   0,
		MinEventsPerPair: 10,
		VarianceMethod:   GaussianFit,
		HistogramBins:    40,
		TrimSigma:        5,
		MinFitEvents:     50,
		NumWorkers:       1,
		MaxEvents:        1000000000,
		WriteData:        true,
		CompressionLevel: 4,
		NoDB:             true,
		Host:             "localhost",
		User:             "reader",
		Passwd:           "readonly",
		DBName:           "RUNS",
		Topic:            "waveforms",
		Group:            "jitter-online",
		ReportEvery:      1000,
	}
}

func (c Configuration) Validate() error {
	if len(c.Channels) == 0 {
		return ErrEmptyChannelSet
	}
	if c.Polarity != Negative && c.Polarity != Positive {
		return &ConfigurationError{Field: "polarity", Reason: "must be \"negative\" or \"positive\""}
	}
	if !(c.Fraction > 0 && c.Fraction < 1) {
		return &ConfigurationError{Field: "fraction", Reason: fmt.Sprintf("%v not in (0, 1)", c.Fraction)}
	}
	if c.MinEventsPerPair < 2 {
		return &ConfigurationError{Field: "min_events_per_pair", Reason: "must be at least 2"}
	}
	if c.RoiStop != 0 && c.RoiStop <= c.RoiStart {
		return &ConfigurationError{Field: "roi_stop", Reason: "must be after roi_start"}
	}
	if c.HistogramBins < 5 {
		return &ConfigurationError{Field: "histogram_bins", Reason: "must be at least 5"}
	}
	if math.IsNaN(c.TrimSigma) || c.TrimSigma <= 0 {
		return &ConfigurationError{Field: "trim_sigma", Reason: "must be positive"}
	}
	channels := NewChannelSet(c.Channels...)
	for _, p := range c.Pairs {
		if !channels.Contains(p.A) || !channels.Contains(p.B) {
			return &ConfigurationError{Field: "pairs", Reason: fmt.Sprintf("pair %v uses a channel outside %v", p, c.Channels)}
		}
		if p.A == p.B {
			return &ConfigurationError{Field: "pairs", Reason: fmt.Sprintf("pair %v repeats a channel", p)}
		}
	}
	if c.Collimation == SoftwareCollimation && !c.AutoThresholds {
		for _, ch := range channels {
			if _, ok := c.Thresholds[ch]; !ok {
				return &ConfigurationError{Field: "thresholds", Reason: fmt.Sprintf("no threshold for channel %d", ch)}
			}
		}
	}
	return nil
}

// ChannelSet returns the configured channels sorted and deduplicated.
func (c Configuration) ChannelSet() ChannelSet {
	return NewChannelSet(c.Channels...)
}

func (c Configuration) CFDOptions() CFDOptions {
	return CFDOptions{
		Fraction:     c.Fraction,
		Polarity:     c.Polarity,
		MinAmplitude: c.MinAmplitude,
		Window:       Window{Start: c.RoiStart, Stop: c.RoiStop},
	}
}

func (c Configuration) VarianceOptions() VarianceOptions {
	return VarianceOptions{
		Method:           c.VarianceMethod,
		MinEventsPerPair: c.MinEventsPerPair,
		MinFitEvents:     c.MinFitEvents,
		HistogramBins:    c.HistogramBins,
		TrimSigma:        c.TrimSigma,
	}
}

// SelectedPairs returns the configured pairs, or the golden middle pair for
// geometric collimation, or all pairs of the channel set.
func (c Configuration) SelectedPairs() []Pair {
	if len(c.Pairs) > 0 {
		return NormalizePairs(c.Pairs)
	}
	if c.Collimation == GeometricCollimation {
		if pair, ok := MiddlePair(c.StackConfig); ok {
			return []Pair{pair}
		}
	}
	return AllPairs(c.ChannelSet())
}
