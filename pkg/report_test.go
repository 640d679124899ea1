package jitter

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWriteReport(t *testing.T) {
	events := NewGenerator(DefaultSyntheticOptions()).Events(200)
	result, err := Analyse(context.Background(), events, analysisConfig())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	meta := RunMetadata{RunID: "run011", RunNumber: 11, StackConfig: "1342"}
	if err := WriteReport(&buf, meta, result); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Run run011 (stack 1342)", "1-2", "3-4", "Jitter (ns)", "well determined true"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}
