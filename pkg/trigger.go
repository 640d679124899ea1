package jitter

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TriggerSpread is the spread of one channel's arrival time with respect to
// the trigger, which defines t = 0 of every acquisition.
type TriggerSpread struct {
	Channel  ChannelID
	N        int
	Mean     float64
	Sigma    float64
	Reliable bool
}

// TriggerSpreads measures the standard deviation of the dCFD time of each
// channel across events. Only noise events are dropped: the trigger sees
// every track, so no amplitude cut applies. The result includes the trigger
// jitter and the geometric spread, and is an upper bound on the intrinsic
// jitter. Verdicts must already be set, as in Result.Summaries.
func TriggerSpreads(summaries []EventSummary, channels []ChannelID, minEvents int) []TriggerSpread {
	spreads := make([]TriggerSpread, 0, len(channels))
	for _, ch := range channels {
		times := make([]float64, 0, len(summaries))
		for _, s := range summaries {
			if s.Verdict == Noise {
				continue
			}
			if tm := s.Channels[ch].Timing; tm.Valid {
				times = append(times, tm.Time)
			}
		}
		spread := TriggerSpread{
			Channel:  ch,
			N:        len(times),
			Mean:     math.NaN(),
			Sigma:    math.NaN(),
			Reliable: len(times) >= minEvents,
		}
		if len(times) > 0 {
			spread.Mean, spread.Sigma = stat.PopMeanStdDev(times, nil)
		}
		spreads = append(spreads, spread)
	}
	return spreads
}
