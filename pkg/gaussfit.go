package jitter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type gaussFit struct {
	Mean  float64
	Sigma float64
}

// Returned by the likelihood when a parameter point leaves no probability in
// an occupied bin.
const penalty = 1e300

// fitGaussian fits a Gaussian truncated to [lo, hi] to the histogram of the
// sorted sample, maximising the multinomial likelihood of the bin contents.
// Sigma is fitted on a log scale so it stays positive.
func fitGaussian(sorted []float64, lo, hi float64, bins int, mean0, sigma0 float64) (gaussFit, error) {
	if bins < 2 || !(hi > lo) {
		return gaussFit{}, fmt.Errorf("bad histogram range [%v, %v] with %d bins", lo, hi, bins)
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	nll := func(x []float64) float64 {
		sigma := math.Exp(x[1])
		if math.IsInf(sigma, 0) || sigma == 0 {
			return penalty
		}
		norm := distuv.Normal{Mu: x[0], Sigma: sigma}
		total := norm.CDF(dividers[bins]) - norm.CDF(dividers[0])
		if !(total > 0) {
			return penalty
		}
		f := 0.0
		for k, c := range counts {
			if c == 0 {
				continue
			}
			p := (norm.CDF(dividers[k+1]) - norm.CDF(dividers[k])) / total
			if !(p > 0) {
				return penalty
			}
			f -= c * math.Log(p)
		}
		return f
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 100,
		},
		MajorIterations: 5000,
	}
	result, err := optimize.Minimize(optimize.Problem{Func: nll}, []float64{mean0, math.Log(sigma0)}, settings, &optimize.NelderMead{})
	if err != nil {
		return gaussFit{}, err
	}
	if result.F >= penalty {
		return gaussFit{}, errors.New("likelihood did not leave the penalty region")
	}
	fit := gaussFit{Mean: result.X[0], Sigma: math.Exp(result.X[1])}
	if math.IsNaN(fit.Mean) || math.IsNaN(fit.Sigma) || math.IsInf(fit.Sigma, 0) {
		return gaussFit{}, errors.New("non finite fit parameters")
	}
	return fit, nil
}
