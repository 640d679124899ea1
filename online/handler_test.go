package main

import (
	"bytes"
	"strings"
	"testing"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

func TestRunHandler(t *testing.T) {
	config := jitter.DefaultConfiguration()
	config.Polarity = jitter.Negative
	config.Thresholds = map[jitter.ChannelID]float64{1: 50, 2: 50, 3: 50, 4: 50}
	config.ReportEvery = 100

	var out bytes.Buffer
	h := newRunHandler(config, &out)
	gen := jitter.NewGenerator(jitter.DefaultSyntheticOptions())
	for i := 0; i < 150; i++ {
		run := 5
		if i%3 == 0 {
			run = 6
		}
		value, err := jitter.EncodeEvent(gen.Next(), run)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.handle(value); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.runs[5].Len(); got != 100 {
		t.Errorf("run 5 has %d events, want 100", got)
	}
	if got := h.runs[6].Len(); got != 50 {
		t.Errorf("run 6 has %d events, want 50", got)
	}
	if n := strings.Count(out.String(), "Run run005"); n != 1 {
		t.Errorf("%d periodic reports of run 5, want 1", n)
	}

	out.Reset()
	h.reportAll()
	if !strings.Contains(out.String(), "Run run005") || !strings.Contains(out.String(), "Run run006") {
		t.Errorf("final report incomplete:\n%s", out.String())
	}

	if err := h.handle([]byte("not cbor")); err == nil {
		t.Error("malformed record should fail")
	}
}
