package jitter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Pair is an unordered channel pair, stored with A < B.
type Pair struct {
	A ChannelID
	B ChannelID
}

func NewPair(a, b ChannelID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("%d-%d", p.A, p.B)
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]ChannelID{p.A, p.B})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var v [2]ChannelID
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid Pair %s: %w", data, err)
	}
	*p = NewPair(v[0], v[1])
	return nil
}

// AllPairs returns the C(N,2) pairs of the set in (A, B) order.
func AllPairs(channels ChannelSet) []Pair {
	pairs := make([]Pair, 0, len(channels)*(len(channels)-1)/2)
	for i := 0; i < len(channels); i++ {
		for j := i + 1; j < len(channels); j++ {
			pairs = append(pairs, NewPair(channels[i], channels[j]))
		}
	}
	return pairs
}

// NormalizePairs orders, sorts and deduplicates a pair selection.
func NormalizePairs(pairs []Pair) []Pair {
	seen := make(map[Pair]bool, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		p = NewPair(p.A, p.B)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sortPairs(out)
	return out
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

type VarianceMethod int

const (
	GaussianFit VarianceMethod = iota
	SampleVariance
)

var varianceMethodStrings = []string{
	"fit",
	"sample",
}

func (m VarianceMethod) String() string {
	if m < GaussianFit || m > SampleVariance {
		return "UNKNOWN"
	}
	return varianceMethodStrings[m]
}

func (m VarianceMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *VarianceMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range varianceMethodStrings {
		if v == s {
			*m = VarianceMethod(i)
			return nil
		}
	}
	return fmt.Errorf("invalid VarianceMethod: %s", s)
}

type VarianceOptions struct {
	Method           VarianceMethod
	MinEventsPerPair int
	MinFitEvents     int
	HistogramBins    int
	TrimSigma        float64
}

func DefaultVarianceOptions() VarianceOptions {
	return VarianceOptions{
		Method:           GaussianFit,
		MinEventsPerPair: 10,
		MinFitEvents:     50,
		HistogramBins:    40,
		TrimSigma:        5,
	}
}

// PairVariance summarises the time difference t_A - t_B over the accepted
// events. N counts the events where both channels have a valid time; Used is
// what remained after outlier trimming.
type PairVariance struct {
	Pair
	Mean     float64
	Sigma    float64
	Variance float64
	N        int
	Used     int
	Method   VarianceMethod
	Reliable bool
}

// Usable tells whether the estimate can enter the jitter solver at all.
func (pv PairVariance) Usable() bool {
	return pv.N >= 2 && !math.IsNaN(pv.Variance) && !math.IsInf(pv.Variance, 0)
}

// PairDifferences collects t_A - t_B from the events where both timings are
// valid, in event order.
func PairDifferences(timings []EventTimings, pair Pair) []float64 {
	dt := make([]float64, 0, len(timings))
	for _, evt := range timings {
		a, okA := evt.Times[pair.A]
		b, okB := evt.Times[pair.B]
		if !okA || !okB || !a.Valid || !b.Valid {
			continue
		}
		dt = append(dt, a.Time-b.Time)
	}
	return dt
}

func EstimatePairVariances(timings []EventTimings, pairs []Pair, opts VarianceOptions) []PairVariance {
	estimates := make([]PairVariance, 0, len(pairs))
	for _, pair := range pairs {
		estimates = append(estimates, EstimateVariance(pair, PairDifferences(timings, pair), opts))
	}
	sort.SliceStable(estimates, func(i, j int) bool {
		if estimates[i].A != estimates[j].A {
			return estimates[i].A < estimates[j].A
		}
		return estimates[i].B < estimates[j].B
	})
	return estimates
}

// EstimateVariance trims outliers around the median and fits a Gaussian to
// what is left. The trimmed sample variance is used when the fit is not
// requested or cannot be trusted.
func EstimateVariance(pair Pair, dt []float64, opts VarianceOptions) PairVariance {
	pv := PairVariance{
		Pair:     pair,
		Mean:     math.NaN(),
		Sigma:    math.NaN(),
		Variance: math.NaN(),
		N:        len(dt),
		Method:   SampleVariance,
		Reliable: len(dt) >= opts.MinEventsPerPair,
	}
	if len(dt) < 2 {
		return pv
	}

	sorted := make([]float64, len(dt))
	copy(sorted, dt)
	sort.Float64s(sorted)
	median, scale := robustScale(sorted)

	kept := sorted
	if scale > 0 {
		kept = make([]float64, 0, len(sorted))
		for _, x := range sorted {
			if math.Abs(x-median) <= opts.TrimSigma*scale {
				kept = append(kept, x)
			}
		}
		if len(kept) < 2 {
			kept = sorted
		}
	}

	mean, std := stat.MeanStdDev(kept, nil)
	pv.Used = len(kept)
	pv.Mean = mean
	pv.Sigma = std
	pv.Variance = std * std

	if opts.Method != GaussianFit || len(kept) < opts.MinFitEvents || !(std > 0) {
		return pv
	}
	lo, hi := kept[0], kept[len(kept)-1]
	if scale > 0 {
		lo = math.Min(lo, median-opts.TrimSigma*scale)
		hi = math.Max(hi, median+opts.TrimSigma*scale)
	}
	fit, err := fitGaussian(kept, lo, hi, opts.HistogramBins, mean, std)
	if err != nil {
		logger.Info(fmt.Sprintf("Pair %v: Gaussian fit failed, using sample variance: %v", pair, err), "pairs")
		return pv
	}
	if !(fit.Sigma > 0.2*std && fit.Sigma < 5*std) {
		logger.Info(fmt.Sprintf("Pair %v: fitted sigma %.4g far from sample sigma %.4g, using sample variance", pair, fit.Sigma, std), "pairs")
		return pv
	}
	pv.Mean = fit.Mean
	pv.Sigma = fit.Sigma
	pv.Variance = fit.Sigma * fit.Sigma
	pv.Method = GaussianFit
	return pv
}

// robustScale returns the median and a robust estimate of the standard
// deviation of a sorted sample: the MAD, then the interquartile range when
// more than half the values are tied, then the mean absolute deviation.
// Each is scaled to sigma for Gaussian data.
func robustScale(sorted []float64) (float64, float64) {
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	deviations := make([]float64, len(sorted))
	for i, x := range sorted {
		deviations[i] = math.Abs(x - median)
	}
	sort.Float64s(deviations)
	if mad := stat.Quantile(0.5, stat.Empirical, deviations, nil); mad > 0 {
		return median, 1.4826 * mad
	}
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	if iqr := q3 - q1; iqr > 0 {
		return median, iqr / 1.349
	}
	return median, math.Sqrt(math.Pi/2) * stat.Mean(deviations, nil)
}
