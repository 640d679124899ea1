package jitter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSlogLogger(t *testing.T) {
	var info, errs bytes.Buffer
	l := NewSlogLogger(&info, &errs)

	l.Info("Pair 1-2 unreliable", "pipeline")
	line := info.String()
	if !strings.HasSuffix(line, "[pipeline] Pair 1-2 unreliable\n") {
		t.Errorf("info line %q", line)
	}
	if !strings.HasPrefix(line, "[") || strings.Contains(line, "module=") {
		t.Errorf("info line should carry bracketed values only: %q", line)
	}

	l.Error("cannot open run")
	var record map[string]any
	if err := json.Unmarshal(errs.Bytes(), &record); err != nil {
		t.Fatalf("error stream is not JSON: %v", err)
	}
	if record["msg"] != "cannot open run" || record["level"] != "ERROR" {
		t.Errorf("error record %v", record)
	}
}
