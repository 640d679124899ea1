package jitter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	runNumberRe   = regexp.MustCompile(`^run(\d+)`)
	stackConfigRe = regexp.MustCompile(`config_(\d{4})`)
	wfmChannelRe  = regexp.MustCompile(`^(.*)_Ch(\d+)\.wfm$`)
)

// DefaultStackConfig is the detector order assumed when the run name does
// not carry one.
const DefaultStackConfig = "1234"

// RunMetadata is what the run directory name tells about an acquisition:
// runXYZ_<events>_config_ABCD_<notes>. The stack configuration lists the
// detectors from top to bottom.
type RunMetadata struct {
	RunID       string
	RunNumber   int
	StackConfig string
	Path        string
}

func ParseRunDirName(dir string) (RunMetadata, error) {
	name := filepath.Base(filepath.Clean(dir))
	meta := RunMetadata{
		RunID:       strings.SplitN(name, "_", 2)[0],
		StackConfig: DefaultStackConfig,
		Path:        dir,
	}
	m := runNumberRe.FindStringSubmatch(name)
	if m == nil {
		return meta, fmt.Errorf("directory %q does not follow the runXYZ naming", name)
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return meta, fmt.Errorf("bad run number in %q: %w", name, err)
	}
	meta.RunNumber = number
	if c := stackConfigRe.FindStringSubmatch(name); c != nil {
		meta.StackConfig = c[1]
	}
	return meta, nil
}

// StackPosition returns the position of channel ch in the stack, 0 being the
// top detector, or -1 when the detector is not in the configuration.
func StackPosition(ch ChannelID, stack string) int {
	if ch > 9 {
		return -1
	}
	return strings.IndexByte(stack, byte('0'+ch))
}

// MiddlePair returns the two inner detectors of a 4-fold stack, the pair
// least affected by corner clipping.
func MiddlePair(stack string) (Pair, bool) {
	if len(stack) != 4 {
		return Pair{}, false
	}
	a, errA := strconv.Atoi(stack[1:2])
	b, errB := strconv.Atoi(stack[2:3])
	if errA != nil || errB != nil || a == b {
		return Pair{}, false
	}
	return NewPair(ChannelID(a), ChannelID(b)), true
}

// Run holds the FastFrame acquisitions of one run, one file per channel,
// truncated to the frame count common to every channel.
type Run struct {
	Metadata  RunMetadata
	Time      []float64
	Voltages  map[ChannelID][][]float64
	NumEvents int
}

// RunFiles finds the per channel WFM files of a run directory. When several
// acquisitions share the directory the first prefix in lexical order wins.
func RunFiles(dir string) (map[ChannelID]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_Ch*.wfm"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	sets := make(map[string]map[ChannelID]string)
	var prefixes []string
	for _, path := range matches {
		m := wfmChannelRe.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			continue
		}
		ch, err := strconv.Atoi(m[2])
		if err != nil || ch < 0 || ch > 0xffff {
			continue
		}
		if _, ok := sets[m[1]]; !ok {
			sets[m[1]] = make(map[ChannelID]string)
			prefixes = append(prefixes, m[1])
		}
		sets[m[1]][ChannelID(ch)] = path
	}
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("no *_ChN.wfm files in %q", dir)
	}
	sort.Strings(prefixes)
	return sets[prefixes[0]], nil
}

// LoadRun reads the WFM files of the requested channels.
func LoadRun(dir string, channels ChannelSet) (*Run, error) {
	if len(channels) == 0 {
		return nil, ErrEmptyChannelSet
	}
	meta, err := ParseRunDirName(dir)
	if err != nil {
		logger.Info(fmt.Sprintf("%v, using stack %s", err, meta.StackConfig), "run")
	}
	files, err := RunFiles(dir)
	if err != nil {
		return nil, err
	}

	run := &Run{
		Metadata: meta,
		Voltages: make(map[ChannelID][][]float64, len(channels)),
	}
	for _, ch := range channels {
		path, ok := files[ch]
		if !ok {
			return nil, fmt.Errorf("run %s has no file for channel %d", meta.RunID, ch)
		}
		w, err := ReadWfm(path)
		if err != nil {
			return nil, err
		}
		frames, err := w.Frames()
		if err != nil {
			return nil, err
		}
		if run.Time == nil {
			run.Time = w.Time()
			run.NumEvents = len(frames)
		} else if len(run.Time) != w.TimeSize {
			return nil, &WfmFormatError{Filename: path, Reason: fmt.Sprintf("%d points per frame, other channels have %d", w.TimeSize, len(run.Time))}
		}
		if len(frames) < run.NumEvents {
			run.NumEvents = len(frames)
		}
		run.Voltages[ch] = frames
	}
	for ch, frames := range run.Voltages {
		if len(frames) > run.NumEvents {
			logger.Info(fmt.Sprintf("Channel %d: truncating %d frames to %d", ch, len(frames), run.NumEvents), "run")
			run.Voltages[ch] = frames[:run.NumEvents]
		}
	}
	return run, nil
}

// Event returns frame i of every channel as an Event.
func (r *Run) Event(i int) Event {
	voltages := make(map[ChannelID][]float64, len(r.Voltages))
	for ch, frames := range r.Voltages {
		voltages[ch] = frames[i]
	}
	return Event{EventID: i, Time: r.Time, Voltages: voltages}
}

// Events returns up to maxEvents events starting at skip; maxEvents <= 0
// means all.
func (r *Run) Events(skip, maxEvents int) []Event {
	if skip < 0 {
		skip = 0
	}
	stop := r.NumEvents
	if maxEvents > 0 && skip+maxEvents < stop {
		stop = skip + maxEvents
	}
	if skip >= stop {
		return nil
	}
	events := make([]Event, 0, stop-skip)
	for i := skip; i < stop; i++ {
		events = append(events, r.Event(i))
	}
	return events
}
