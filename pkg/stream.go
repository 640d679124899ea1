package jitter

import (
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// wireEvent is the CBOR layout of an event on the streaming source. Integer
// keys keep the messages small.
type wireEvent struct {
	EventID  int                     `cbor:"1,keyasint"`
	Run      int                     `cbor:"2,keyasint,omitempty"`
	Time     []float64               `cbor:"3,keyasint"`
	Voltages map[ChannelID][]float64 `cbor:"4,keyasint"`
}

// EncodeEvent serialises an event for the streaming source. run is carried
// along so consumers can separate interleaved runs; 0 means unknown.
func EncodeEvent(event Event, run int) ([]byte, error) {
	data, err := cbor.Marshal(wireEvent{
		EventID:  event.EventID,
		Run:      run,
		Time:     event.Time,
		Voltages: event.Voltages,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding event %d: %w", event.EventID, err)
	}
	return data, nil
}

// DecodeEvent is the inverse of EncodeEvent. The event is not validated.
func DecodeEvent(data []byte) (Event, int, error) {
	var w wireEvent
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Event{}, 0, fmt.Errorf("error decoding event: %w", err)
	}
	if w.Voltages == nil {
		w.Voltages = map[ChannelID][]float64{}
	}
	return Event{EventID: w.EventID, Time: w.Time, Voltages: w.Voltages}, w.Run, nil
}

// EventKey is the record key used when publishing events: the run number, so
// that all events of a run land in the same partition and stay ordered.
func EventKey(run int) []byte {
	return []byte(strconv.Itoa(run))
}
