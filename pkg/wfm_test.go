package jitter

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type wfmSpec struct {
	order      binary.ByteOrder
	format     WfmDataFormat
	frames     [][]float64 // raw codes
	announced  int         // frames announced in the header, 0 for len(frames)
	voltScale  float64
	voltOffset float64
	timeScale  float64
	timeOffset float64
}

// buildWfm lays out a minimal FastFrame file with the curve right after a
// 512 byte header.
func buildWfm(s wfmSpec) []byte {
	const curveOffset = 512
	points := len(s.frames[0])
	size := s.format.size()
	data := make([]byte, curveOffset+len(s.frames)*points*size)

	if s.order == binary.LittleEndian {
		data[0], data[1] = 0x0f, 0x0f
	} else {
		data[0], data[1] = 0xf0, 0xf0
	}
	copy(data[wfmOffsetVersion:], ":WFM#003")
	data[wfmOffsetBytesPerPoint] = byte(size)
	announced := s.announced
	if announced == 0 {
		announced = len(s.frames)
	}
	s.order.PutUint32(data[wfmOffsetCurveOffset:], curveOffset)
	s.order.PutUint32(data[wfmOffsetFastFrameCount:], uint32(announced-1))
	s.order.PutUint32(data[wfmOffsetSetType:], 1)
	s.order.PutUint64(data[wfmOffsetVoltScale:], math.Float64bits(s.voltScale))
	s.order.PutUint64(data[wfmOffsetVoltOffset:], math.Float64bits(s.voltOffset))
	s.order.PutUint32(data[wfmOffsetDataFormat:], uint32(s.format))
	s.order.PutUint64(data[wfmOffsetTimeScale:], math.Float64bits(s.timeScale))
	s.order.PutUint64(data[wfmOffsetTimeOffset:], math.Float64bits(s.timeOffset))
	s.order.PutUint32(data[wfmOffsetTimeSize:], uint32(points))

	pos := curveOffset
	for _, frame := range s.frames {
		for _, code := range frame {
			switch s.format {
			case WfmInt8:
				data[pos] = byte(int8(code))
			case WfmInt16:
				s.order.PutUint16(data[pos:], uint16(int16(code)))
			case WfmInt32:
				s.order.PutUint32(data[pos:], uint32(int32(code)))
			case WfmFP32:
				s.order.PutUint32(data[pos:], math.Float32bits(float32(code)))
			}
			pos += size
		}
	}
	return data
}

func TestParseWfmFormats(t *testing.T) {
	frames := [][]float64{
		{0, -10, -100, -50, 3},
		{1, 2, -120, -7, 0},
		{-1, -1, -1, -1, -1},
	}
	tests := []struct {
		name   string
		order  binary.ByteOrder
		format WfmDataFormat
	}{
		{"int16 little endian", binary.LittleEndian, WfmInt16},
		{"int16 big endian", binary.BigEndian, WfmInt16},
		{"int8", binary.LittleEndian, WfmInt8},
		{"int32 big endian", binary.BigEndian, WfmInt32},
		{"fp32", binary.LittleEndian, WfmFP32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildWfm(wfmSpec{
				order:      tt.order,
				format:     tt.format,
				frames:     frames,
				voltScale:  0.004,
				voltOffset: 0.01,
				timeScale:  2e-10,
				timeOffset: -5e-9,
			})
			w, err := ParseWfm("test.wfm", data)
			if err != nil {
				t.Fatal(err)
			}
			if w.NumFrames != 3 || w.TimeSize != 5 || w.DataFormat != tt.format {
				t.Fatalf("header: %d frames of %d points, format %v", w.NumFrames, w.TimeSize, w.DataFormat)
			}
			if w.Version != ":WFM#003" {
				t.Errorf("version %q", w.Version)
			}

			time := w.Time()
			for i, got := range time {
				if want := -5 + 0.2*float64(i); math.Abs(got-want) > 1e-9 {
					t.Errorf("time[%d] = %v ns, want %v", i, got, want)
				}
			}

			decoded, err := w.Frames()
			if err != nil {
				t.Fatal(err)
			}
			for f, frame := range frames {
				for i, code := range frame {
					want := (code*0.004 + 0.01) * 1e3
					if math.Abs(decoded[f][i]-want) > 1e-9 {
						t.Errorf("frame %d sample %d: %v mV, want %v", f, i, decoded[f][i], want)
					}
				}
			}
		})
	}
}

func TestParseWfmTruncated(t *testing.T) {
	data := buildWfm(wfmSpec{
		order:     binary.LittleEndian,
		format:    WfmInt16,
		frames:    [][]float64{{1, 2, 3}, {4, 5, 6}},
		announced: 10,
		voltScale: 1,
		timeScale: 1e-9,
	})
	w, err := ParseWfm("short.wfm", data)
	if err != nil {
		t.Fatal(err)
	}
	if w.NumFrames != 10 || w.AvailableFrames() != 2 {
		t.Errorf("announced %d, available %d", w.NumFrames, w.AvailableFrames())
	}
	frames, err := w.Frames()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 || frames[1][2] != 6000 {
		t.Errorf("decoded %v", frames)
	}
}

func TestParseWfmErrors(t *testing.T) {
	good := buildWfm(wfmSpec{order: binary.LittleEndian, format: WfmInt16, frames: [][]float64{{1, 2, 3}}, voltScale: 1, timeScale: 1e-9})

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0x12

	badFormat := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badFormat[wfmOffsetDataFormat:], 2)

	tests := []struct {
		name string
		data []byte
	}{
		{"short header", good[:100]},
		{"bad byte order mark", badMagic},
		{"unsupported format", badFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWfm("bad.wfm", tt.data)
			var ferr *WfmFormatError
			if !errors.As(err, &ferr) {
				t.Errorf("got %v, want *WfmFormatError", err)
			}
		})
	}
}

func TestReadWfmMissingFile(t *testing.T) {
	_, err := ReadWfm(filepath.Join(t.TempDir(), "missing.wfm"))
	var oerr *ErrOpenFile
	if !errors.As(err, &oerr) {
		t.Errorf("got %v, want *ErrOpenFile", err)
	}
}

func TestLoadRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run007_1000_config_1342_cosmics")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	frameCounts := map[ChannelID]int{1: 4, 2: 3, 3: 4, 4: 5}
	for ch, n := range frameCounts {
		frames := make([][]float64, n)
		for f := range frames {
			frames[f] = []float64{0, float64(-f), float64(-10 * int(ch)), 0}
		}
		data := buildWfm(wfmSpec{order: binary.LittleEndian, format: WfmInt16, frames: frames, voltScale: 0.001, timeScale: 1e-9})
		name := filepath.Join(dir, "cosmics_Ch"+string(rune('0'+ch))+".wfm")
		if err := os.WriteFile(name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// a second acquisition with a later prefix must be ignored
	if err := os.WriteFile(filepath.Join(dir, "zzz_Ch1.wfm"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	run, err := LoadRun(dir, NewChannelSet(1, 2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if run.Metadata.RunNumber != 7 || run.Metadata.StackConfig != "1342" || run.Metadata.RunID != "run007" {
		t.Errorf("metadata %+v", run.Metadata)
	}
	if run.NumEvents != 3 {
		t.Errorf("%d events, want the common 3", run.NumEvents)
	}
	for ch, frames := range run.Voltages {
		if len(frames) != 3 {
			t.Errorf("channel %d keeps %d frames", ch, len(frames))
		}
	}

	events := run.Events(1, 5)
	if len(events) != 2 {
		t.Fatalf("got %d events after skipping 1, want 2", len(events))
	}
	ev := events[1]
	if ev.EventID != 2 {
		t.Errorf("event id %d, want 2", ev.EventID)
	}
	if err := ev.Validate(NewChannelSet(1, 2, 3, 4)); err != nil {
		t.Fatal(err)
	}
	if got := ev.Voltages[3][2]; math.Abs(got-(-30)) > 1e-9 {
		t.Errorf("channel 3 sample 2 = %v mV, want -30", got)
	}
	if got := ev.Time[3]; math.Abs(got-3) > 1e-9 {
		t.Errorf("time[3] = %v ns, want 3", got)
	}

	if _, err := LoadRun(dir, NewChannelSet(1, 5)); err == nil {
		t.Error("expected an error for a channel without file")
	}
}
