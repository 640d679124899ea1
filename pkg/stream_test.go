package jitter

import (
	"context"
	"testing"
)

func TestEventEncoding(t *testing.T) {
	event := NewGenerator(DefaultSyntheticOptions()).Events(3)[2]
	data, err := EncodeEvent(event, 11)
	if err != nil {
		t.Fatal(err)
	}
	decoded, run, err := DecodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if run != 11 || decoded.EventID != event.EventID {
		t.Errorf("run %d event %d, want run 11 event %d", run, decoded.EventID, event.EventID)
	}
	if len(decoded.Time) != len(event.Time) || len(decoded.Voltages) != len(event.Voltages) {
		t.Fatalf("shape changed: %d samples %d channels", len(decoded.Time), len(decoded.Voltages))
	}
	for i := range event.Time {
		if decoded.Time[i] != event.Time[i] {
			t.Fatalf("time[%d] = %v, want %v", i, decoded.Time[i], event.Time[i])
		}
	}
	for ch, v := range event.Voltages {
		for i := range v {
			if decoded.Voltages[ch][i] != v[i] {
				t.Fatalf("channel %d sample %d = %v, want %v", ch, i, decoded.Voltages[ch][i], v[i])
			}
		}
	}
}

func TestDecodedEventsAnalyseLikeOriginals(t *testing.T) {
	events := NewGenerator(DefaultSyntheticOptions()).Events(120)
	config := analysisConfig()

	acc, err := NewAccumulator(config)
	if err != nil {
		t.Fatal(err)
	}
	for _, event := range events {
		data, err := EncodeEvent(event, 1)
		if err != nil {
			t.Fatal(err)
		}
		decoded, _, err := DecodeEvent(data)
		if err != nil {
			t.Fatal(err)
		}
		if err := acc.Add(decoded); err != nil {
			t.Fatal(err)
		}
	}
	streamed, err := acc.Result()
	if err != nil {
		t.Fatal(err)
	}
	batch, err := Analyse(context.Background(), events, config)
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range batch.Channels {
		if streamed.Solution.Variance[ch] != batch.Solution.Variance[ch] {
			t.Errorf("channel %d: %v vs %v", ch, streamed.Solution.Variance[ch], batch.Solution.Variance[ch])
		}
	}
}

func TestDecodeEventGarbage(t *testing.T) {
	if _, _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func TestEventKey(t *testing.T) {
	if got := string(EventKey(42)); got != "42" {
		t.Errorf("got %q", got)
	}
}
