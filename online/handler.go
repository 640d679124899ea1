package main

import (
	"fmt"
	"io"
	"sort"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

// runHandler keeps one accumulator per run seen on the topic and reports a
// run every reportEvery events.
type runHandler struct {
	config      jitter.Configuration
	reportEvery int
	out         io.Writer
	runs        map[int]*jitter.Accumulator
}

func newRunHandler(config jitter.Configuration, out io.Writer) *runHandler {
	return &runHandler{
		config:      config,
		reportEvery: config.ReportEvery,
		out:         out,
		runs:        make(map[int]*jitter.Accumulator),
	}
}

func (h *runHandler) handle(value []byte) error {
	event, run, err := jitter.DecodeEvent(value)
	if err != nil {
		return err
	}
	acc, ok := h.runs[run]
	if !ok {
		acc, err = jitter.NewAccumulator(h.config)
		if err != nil {
			return err
		}
		h.runs[run] = acc
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("New run %d on the stream", run), "online")
		}
	}
	if err := acc.Add(event); err != nil {
		return err
	}
	if h.reportEvery > 0 && acc.Len()%h.reportEvery == 0 {
		return h.report(run)
	}
	return nil
}

func (h *runHandler) report(run int) error {
	acc, ok := h.runs[run]
	if !ok {
		return fmt.Errorf("no events for run %d", run)
	}
	result, err := acc.Result()
	if err != nil {
		return fmt.Errorf("run %d after %d events: %w", run, acc.Len(), err)
	}
	meta := jitter.RunMetadata{RunID: fmt.Sprintf("run%03d", run), RunNumber: run, StackConfig: h.config.StackConfig}
	return jitter.WriteReport(h.out, meta, result)
}

// reportAll prints every run in run number order.
func (h *runHandler) reportAll() {
	runs := make([]int, 0, len(h.runs))
	for run := range h.runs {
		runs = append(runs, run)
	}
	sort.Ints(runs)
	for _, run := range runs {
		if err := h.report(run); err != nil {
			logger.Error(err.Error())
		}
	}
}
