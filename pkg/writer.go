package jitter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmbenlloch/go-hdf5"
)

// Writer stores the per event timings and the jitter results of a run in an
// HDF5 file with the groups Run, Timing and Jitter.
type Writer struct {
	File           *hdf5.File
	Filename       string
	RunGroup       *hdf5.Group
	TimingGroup    *hdf5.Group
	JitterGroup    *hdf5.Group
	RunInfoTable   *hdf5.Dataset
	EventTable     *hdf5.Dataset
	PairsTable     *hdf5.Dataset
	ChannelsTable  *hdf5.Dataset
	ResidualsTable *hdf5.Dataset
	EvtCounter     int
	RowCounter     int
}

func NewWriter(filename string, compression int) (*Writer, error) {
	writer := &Writer{Filename: filename}
	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")

	groups := []struct {
		name  string
		group **hdf5.Group
	}{
		{"Run", &writer.RunGroup},
		{"Timing", &writer.TimingGroup},
		{"Jitter", &writer.JitterGroup},
	}
	for _, g := range groups {
		if *g.group, err = createGroup(writer.File, g.name); err != nil {
			writer.File.Close()
			return nil, err
		}
	}

	tables := []struct {
		group    *hdf5.Group
		name     string
		datatype interface{}
		table    **hdf5.Dataset
	}{
		{writer.RunGroup, "runInfo", RunInfoHDF5{}, &writer.RunInfoTable},
		{writer.TimingGroup, "events", EventTimingHDF5{}, &writer.EventTable},
		{writer.JitterGroup, "pairs", PairVarianceHDF5{}, &writer.PairsTable},
		{writer.JitterGroup, "channels", ChannelJitterHDF5{}, &writer.ChannelsTable},
		{writer.JitterGroup, "residuals", PairResidualHDF5{}, &writer.ResidualsTable},
	}
	for _, t := range tables {
		if *t.table, err = createTable(t.group, t.name, t.datatype, compression); err != nil {
			writer.File.Close()
			return nil, err
		}
	}
	return writer, nil
}

// WriteSummaries appends one row per event and channel to Timing/events.
// Verdicts must already be set: use Result.Summaries.
func (w *Writer) WriteSummaries(summaries []EventSummary) error {
	rows := make([]EventTimingHDF5, 0, 4*len(summaries))
	for _, s := range summaries {
		channels := make([]ChannelID, 0, len(s.Channels))
		for ch := range s.Channels {
			channels = append(channels, ch)
		}
		sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
		for _, ch := range channels {
			cs := s.Channels[ch]
			rows = append(rows, EventTimingHDF5{
				evt_number: int32(s.EventID),
				channel:    int32(ch),
				time:       cs.Timing.Time,
				amplitude:  cs.Amplitude,
				valid:      boolToInt32(cs.Timing.Valid),
				reason:     int32(cs.Timing.Reason),
				verdict:    int32(s.Verdict),
			})
		}
	}
	if err := writeArrayToTable(w.EventTable, &rows, w.RowCounter); err != nil {
		return fmt.Errorf("error writing event timings: %w", err)
	}
	w.RowCounter += len(rows)
	w.EvtCounter += len(summaries)
	return nil
}

// WriteResult stores the run summary, the pair variances, the channel
// jitters and the pair residuals.
func (w *Writer) WriteResult(meta RunMetadata, result Result) error {
	stack, _ := strconv.Atoi(meta.StackConfig)
	runInfo := []RunInfoHDF5{{
		run_number:   int32(meta.RunNumber),
		stack_config: int32(stack),
		n_events:     int32(result.Stats.Total),
		n_accepted:   int32(result.Stats.Accepted),
		n_clipped:    int32(result.Stats.Clipped),
		n_noise:      int32(result.Stats.Noise),
	}}
	if err := writeArrayToTable(w.RunInfoTable, &runInfo, 0); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}

	pairs := make([]PairVarianceHDF5, 0, len(result.Pairs))
	for _, pv := range result.Pairs {
		pairs = append(pairs, PairVarianceHDF5{
			channel_a: int32(pv.A),
			channel_b: int32(pv.B),
			n:         int32(pv.N),
			used:      int32(pv.Used),
			mean:      pv.Mean,
			sigma:     pv.Sigma,
			reliable:  boolToInt32(pv.Reliable),
			method:    int32(pv.Method),
		})
	}
	if err := writeArrayToTable(w.PairsTable, &pairs, 0); err != nil {
		return fmt.Errorf("error writing pair variances: %w", err)
	}

	sol := result.Solution
	channels := make([]ChannelJitterHDF5, 0, len(result.Channels))
	for _, ch := range result.Channels {
		channels = append(channels, ChannelJitterHDF5{
			channel:   int32(ch),
			threshold: result.Thresholds[ch],
			variance:  sol.Variance[ch],
			jitter:    sol.Jitter[ch],
			clamped:   boolToInt32(ChannelSet(sol.Clamped).Contains(ch)),
			at_bound:  boolToInt32(ChannelSet(sol.AtBound).Contains(ch)),
			failures:  int32(result.FailureCount(ch)),
		})
	}
	if err := writeArrayToTable(w.ChannelsTable, &channels, 0); err != nil {
		return fmt.Errorf("error writing channel jitters: %w", err)
	}

	residuals := make([]PairResidualHDF5, 0, len(sol.Residuals))
	for _, r := range sol.Residuals {
		residuals = append(residuals, PairResidualHDF5{
			channel_a: int32(r.A),
			channel_b: int32(r.B),
			measured:  r.Measured,
			predicted: r.Predicted,
		})
	}
	if err := writeArrayToTable(w.ResidualsTable, &residuals, 0); err != nil {
		return fmt.Errorf("error writing pair residuals: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	var errs []error
	for _, d := range []*hdf5.Dataset{w.RunInfoTable, w.EventTable, w.PairsTable, w.ChannelsTable, w.ResidualsTable} {
		if d != nil {
			errs = append(errs, d.Close())
		}
	}
	for _, g := range []*hdf5.Group{w.RunGroup, w.TimingGroup, w.JitterGroup} {
		if g != nil {
			errs = append(errs, g.Close())
		}
	}
	errs = append(errs, w.File.Close())
	return errors.Join(errs...)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
