package main

import (
	"fmt"
	"io"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

type RunReader struct {
	Run      *jitter.Run
	Next     int
	EvtCount int
}

func NewRunReader(run *jitter.Run) *RunReader {
	return &RunReader{Run: run, EvtCount: -1}
}

func (r *RunReader) getNextEvent() (jitter.Event, error) {
	if r.Next >= r.Run.NumEvents {
		return jitter.Event{}, io.EOF
	}
	r.EvtCount++
	if r.EvtCount >= configuration.MaxEvents {
		if VerbosityLevel > 0 {
			logger.Info("Max events reached", "fileReader")
		}
		return jitter.Event{}, io.EOF
	}
	if r.EvtCount < configuration.Skip {
		if VerbosityLevel > 1 {
			message := fmt.Sprintf("Skipping event %d", r.EvtCount)
			logger.Info(message, "fileReader")
		}
		r.Next++
		return r.getNextEvent()
	}
	event := r.Run.Event(r.Next)
	r.Next++
	if VerbosityLevel > 1 {
		message := fmt.Sprintf("Reading event %d", event.EventID)
		logger.Info(message, "fileReader")
	}
	return event, nil
}

func readEvents(reader *RunReader) []jitter.Event {
	events := make([]jitter.Event, 0, reader.Run.NumEvents)
	for {
		event, err := reader.getNextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		events = append(events, event)
	}
	return events
}
