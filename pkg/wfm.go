package jitter

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
)

// Tektronix WFM header offsets.
const (
	wfmOffsetVersion        = 2
	wfmOffsetBytesPerPoint  = 15
	wfmOffsetCurveOffset    = 16
	wfmOffsetFastFrameCount = 72
	wfmOffsetSetType        = 78
	wfmOffsetVoltScale      = 168
	wfmOffsetVoltOffset     = 176
	wfmOffsetDataFormat     = 240
	wfmOffsetTimeScale      = 488
	wfmOffsetTimeOffset     = 496
	wfmOffsetTimeSize       = 504
	wfmHeaderSize           = 508
)

// WfmDataFormat is the sample encoding of the curve buffer.
type WfmDataFormat int32

const (
	WfmInt16 WfmDataFormat = 0
	WfmInt32 WfmDataFormat = 1
	WfmFP32  WfmDataFormat = 4
	WfmInt8  WfmDataFormat = 7
)

func (f WfmDataFormat) size() int {
	switch f {
	case WfmInt8:
		return 1
	case WfmInt16:
		return 2
	case WfmInt32, WfmFP32:
		return 4
	}
	return 0
}

func (f WfmDataFormat) String() string {
	switch f {
	case WfmInt8:
		return "int8"
	case WfmInt16:
		return "int16"
	case WfmInt32:
		return "int32"
	case WfmFP32:
		return "fp32"
	}
	return fmt.Sprintf("WfmDataFormat(%d)", int32(f))
}

// WfmFormatError reports a file that cannot be decoded as a WFM waveform.
type WfmFormatError struct {
	Filename string
	Reason   string
}

func (e *WfmFormatError) Error() string {
	return fmt.Sprintf("bad WFM file %q: %s", e.Filename, e.Reason)
}

// WfmFile is a decoded Tektronix WFM (FastFrame) acquisition. Scales are in
// the file units, seconds and volts.
type WfmFile struct {
	Filename      string
	ByteOrder     binary.ByteOrder
	Version       string
	BytesPerPoint int
	CurveOffset   int
	NumFrames     int
	VoltScale     float64
	VoltOffset    float64
	DataFormat    WfmDataFormat
	TimeScale     float64
	TimeOffset    float64
	TimeSize      int

	data []byte
}

func ReadWfm(filename string) (*WfmFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	return ParseWfm(filename, data)
}

// ParseWfm decodes the header of an in memory WFM file. The name is only used
// in error messages.
func ParseWfm(filename string, data []byte) (*WfmFile, error) {
	if len(data) < wfmHeaderSize {
		return nil, &WfmFormatError{Filename: filename, Reason: fmt.Sprintf("%d bytes is shorter than the header", len(data))}
	}
	w := &WfmFile{Filename: filename, data: data}
	switch {
	case data[0] == 0x0f && data[1] == 0x0f:
		w.ByteOrder = binary.LittleEndian
	case data[0] == 0xf0 && data[1] == 0xf0:
		w.ByteOrder = binary.BigEndian
	default:
		return nil, &WfmFormatError{Filename: filename, Reason: fmt.Sprintf("unknown byte order mark %#x %#x", data[0], data[1])}
	}
	bo := w.ByteOrder
	f64 := func(offset int) float64 {
		return math.Float64frombits(bo.Uint64(data[offset:]))
	}

	w.Version = strings.TrimRight(string(data[wfmOffsetVersion:wfmOffsetVersion+8]), "\x00")
	w.BytesPerPoint = int(int8(data[wfmOffsetBytesPerPoint]))
	w.CurveOffset = int(bo.Uint32(data[wfmOffsetCurveOffset:]))
	w.NumFrames = int(bo.Uint32(data[wfmOffsetFastFrameCount:])) + 1
	if setType := int32(bo.Uint32(data[wfmOffsetSetType:])); setType == 0 {
		w.NumFrames = 1
	}
	w.VoltScale = f64(wfmOffsetVoltScale)
	w.VoltOffset = f64(wfmOffsetVoltOffset)
	w.DataFormat = WfmDataFormat(int32(bo.Uint32(data[wfmOffsetDataFormat:])))
	w.TimeScale = f64(wfmOffsetTimeScale)
	w.TimeOffset = f64(wfmOffsetTimeOffset)
	w.TimeSize = int(bo.Uint32(data[wfmOffsetTimeSize:]))

	if w.DataFormat.size() == 0 {
		return nil, &WfmFormatError{Filename: filename, Reason: fmt.Sprintf("unsupported data format %v", w.DataFormat)}
	}
	if w.TimeSize < 2 {
		return nil, &WfmFormatError{Filename: filename, Reason: fmt.Sprintf("%d points per frame", w.TimeSize)}
	}
	if w.CurveOffset < wfmHeaderSize || w.CurveOffset > len(data) {
		return nil, &WfmFormatError{Filename: filename, Reason: fmt.Sprintf("curve offset %d outside the file", w.CurveOffset)}
	}
	return w, nil
}

// AvailableFrames is the number of complete frames present in the curve
// buffer. Acquisitions interrupted while writing hold fewer frames than the
// header announces.
func (w *WfmFile) AvailableFrames() int {
	frameBytes := w.TimeSize * w.DataFormat.size()
	available := (len(w.data) - w.CurveOffset) / frameBytes
	if available < w.NumFrames {
		return available
	}
	return w.NumFrames
}

// Time returns the sample times in ns.
func (w *WfmFile) Time() []float64 {
	t := make([]float64, w.TimeSize)
	for i := range t {
		t[i] = (float64(i)*w.TimeScale + w.TimeOffset) * 1e9
	}
	return t
}

// Frames decodes every available frame into mV.
func (w *WfmFile) Frames() ([][]float64, error) {
	n := w.AvailableFrames()
	if n == 0 {
		return nil, &WfmFormatError{Filename: w.Filename, Reason: "file is too short to contain data"}
	}
	if n < w.NumFrames {
		logger.Info(fmt.Sprintf("%s: header announces %d frames, only %d present", w.Filename, w.NumFrames, n), "wfm")
	}
	size := w.DataFormat.size()
	bo := w.ByteOrder
	frames := make([][]float64, n)
	pos := w.CurveOffset
	for f := range frames {
		volts := make([]float64, w.TimeSize)
		for i := range volts {
			var code float64
			switch w.DataFormat {
			case WfmInt8:
				code = float64(int8(w.data[pos]))
			case WfmInt16:
				code = float64(int16(bo.Uint16(w.data[pos:])))
			case WfmInt32:
				code = float64(int32(bo.Uint32(w.data[pos:])))
			case WfmFP32:
				code = float64(math.Float32frombits(bo.Uint32(w.data[pos:])))
			}
			volts[i] = (code*w.VoltScale + w.VoltOffset) * 1e3
			pos += size
		}
		frames[f] = volts
	}
	return frames, nil
}
