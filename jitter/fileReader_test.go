package main

import (
	"testing"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

func TestRunReaderSkipAndMax(t *testing.T) {
	run := &jitter.Run{
		Time:      []float64{0, 1},
		Voltages:  map[jitter.ChannelID][][]float64{1: {{0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}}},
		NumEvents: 5,
	}
	configuration = jitter.DefaultConfiguration()
	configuration.Skip = 1
	configuration.MaxEvents = 3

	events := readEvents(NewRunReader(run))
	if len(events) != 2 {
		t.Fatalf("read %d events, want 2", len(events))
	}
	if events[0].EventID != 1 || events[1].EventID != 2 {
		t.Errorf("event ids %d %d, want 1 2", events[0].EventID, events[1].EventID)
	}

	configuration.Skip = 0
	configuration.MaxEvents = 100
	if events := readEvents(NewRunReader(run)); len(events) != 5 {
		t.Errorf("read %d events, want all 5", len(events))
	}
}
