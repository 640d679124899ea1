package jitter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type SolveOptions struct {
	// ExcludeUnreliable drops pairs below the event count floor instead of
	// feeding them to the solver with the same weight as the others.
	ExcludeUnreliable bool
	// Rcond is the relative singular value cutoff used for the rank.
	Rcond float64
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{Rcond: 1e-10}
}

// PairResidual compares a measured pair sigma with the one predicted by the
// solved channel variances.
type PairResidual struct {
	Pair
	Measured  float64
	Predicted float64
	Diff      float64
}

// Solution holds the per channel intrinsic variances (ns^2) and jitters (ns).
//
// WellDetermined is false when the independent pair equations do not pin
// down every channel; the values are then a best effort and channels listed
// in AtBound may be zero because of the data rather than the detector.
// Clamped lists channels whose unconstrained least squares variance was
// negative.
type Solution struct {
	Channels       ChannelSet
	Variance       map[ChannelID]float64
	Jitter         map[ChannelID]float64
	Equations      int
	Rank           int
	WellDetermined bool
	Exact          bool
	Clamped        []ChannelID
	AtBound        []ChannelID
	Unconstrained  []ChannelID
	Cost           float64
	Residuals      []PairResidual
}

// CombinePairs merges estimates of the same pair, for example from runs with
// different stack configurations. When every duplicate carries an event count
// the variances are combined with inverse variance weights (the variance of
// a sample variance v from n events is 2v^2/(n-1)); otherwise they are
// averaged.
func CombinePairs(estimates []PairVariance) []PairVariance {
	groups := make(map[Pair][]PairVariance)
	order := make([]Pair, 0, len(estimates))
	for _, est := range estimates {
		p := NewPair(est.A, est.B)
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		est.Pair = p
		groups[p] = append(groups[p], est)
	}
	sortPairs(order)

	combined := make([]PairVariance, 0, len(order))
	for _, p := range order {
		group := groups[p]
		if len(group) == 1 {
			combined = append(combined, group[0])
			continue
		}
		weighted := true
		for _, est := range group {
			if est.N < 2 || !(est.Variance > 0) {
				weighted = false
				break
			}
		}
		out := PairVariance{Pair: p, Method: group[0].Method}
		var sumW, sumV, sumMean float64
		for _, est := range group {
			w := 1.0
			if weighted {
				w = float64(est.N-1) / (2 * est.Variance * est.Variance)
			}
			sumW += w
			sumV += w * est.Variance
			sumMean += w * est.Mean
			out.N += est.N
			out.Used += est.Used
			out.Reliable = out.Reliable || est.Reliable
			if est.Method != out.Method {
				out.Method = SampleVariance
			}
		}
		out.Variance = sumV / sumW
		out.Sigma = math.Sqrt(out.Variance)
		out.Mean = sumMean / sumW
		combined = append(combined, out)
	}
	return combined
}

// Solve decomposes pair variances into per channel variances by solving
// x_A + x_B = v_AB for x >= 0.
func Solve(estimates []PairVariance, channels ChannelSet, opts SolveOptions) (Solution, error) {
	if len(channels) == 0 {
		return Solution{}, ErrEmptyChannelSet
	}
	if opts.Rcond <= 0 {
		opts.Rcond = DefaultSolveOptions().Rcond
	}

	usable := make([]PairVariance, 0, len(estimates))
	for _, est := range estimates {
		if !est.Usable() {
			continue
		}
		if opts.ExcludeUnreliable && !est.Reliable {
			continue
		}
		if !channels.Contains(est.A) || !channels.Contains(est.B) || est.A == est.B {
			logger.Info(fmt.Sprintf("Pair %v is outside channel set %v, ignored", est.Pair, channels), "solver")
			continue
		}
		usable = append(usable, est)
	}
	rows := CombinePairs(usable)

	n := len(channels)
	m := len(rows)
	sol := Solution{
		Channels:  channels,
		Variance:  make(map[ChannelID]float64, n),
		Jitter:    make(map[ChannelID]float64, n),
		Equations: m,
	}

	observed := make([]bool, n)
	x := make([]float64, n)
	if m > 0 {
		a := mat.NewDense(m, n, nil)
		b := mat.NewVecDense(m, nil)
		for k, row := range rows {
			i, j := channels.Index(row.A), channels.Index(row.B)
			a.Set(k, i, 1)
			a.Set(k, j, 1)
			b.SetVec(k, row.Variance)
			observed[i] = true
			observed[j] = true
		}

		var svd mat.SVD
		if !svd.Factorize(a, mat.SVDThin) {
			return Solution{}, errors.New("singular value decomposition of the design matrix failed")
		}
		sol.Rank = svd.Rank(opts.Rcond)

		if sol.Rank > 0 {
			var unconstrained mat.VecDense
			svd.SolveVecTo(&unconstrained, b, sol.Rank)
			for i := 0; i < n; i++ {
				if unconstrained.AtVec(i) < 0 {
					sol.Clamped = append(sol.Clamped, channels[i])
				}
			}
		}

		if m == n && sol.Rank == n {
			var exact mat.VecDense
			if err := exact.SolveVec(a, b); err == nil && mat.Min(&exact) >= 0 {
				for i := range x {
					x[i] = exact.AtVec(i)
				}
				sol.Exact = true
			}
		}
		if !sol.Exact {
			x = nnls(a, b, opts.Rcond)
		}

		var ax, r mat.VecDense
		for i := range x {
			if x[i] < 0 {
				x[i] = 0
			}
		}
		xv := mat.NewVecDense(n, x)
		ax.MulVec(a, xv)
		r.SubVec(&ax, b)
		sol.Cost = 0.5 * mat.Dot(&r, &r)
		for k, row := range rows {
			measured := math.Sqrt(row.Variance)
			predicted := math.Sqrt(math.Max(ax.AtVec(k), 0))
			sol.Residuals = append(sol.Residuals, PairResidual{
				Pair:      row.Pair,
				Measured:  measured,
				Predicted: predicted,
				Diff:      measured - predicted,
			})
		}
	}

	sol.WellDetermined = sol.Rank == n
	for i, ch := range channels {
		sol.Variance[ch] = x[i]
		sol.Jitter[ch] = math.Sqrt(x[i])
		if x[i] == 0 {
			sol.AtBound = append(sol.AtBound, ch)
		}
		if !observed[i] {
			sol.Unconstrained = append(sol.Unconstrained, ch)
		}
	}
	if !sol.WellDetermined {
		logger.Info(fmt.Sprintf("Underdetermined system: rank %d for %d channels from %d pairs", sol.Rank, n, m), "solver")
	}
	return sol, nil
}

// nnls is the Lawson-Hanson active set method for min |Ax - b| with x >= 0.
// Sub problems are solved with a truncated SVD so rank deficient passive sets
// do not break the iteration.
func nnls(a *mat.Dense, b *mat.VecDense, rcond float64) []float64 {
	_, n := a.Dims()
	x := make([]float64, n)
	passive := make([]bool, n)
	blocked := make([]bool, n)
	w := make([]float64, n)

	tol := 1e-12 * math.Max(1, mat.Norm(b, math.Inf(1))) * float64(n)
	gradient := func() {
		var ax, r, g mat.VecDense
		ax.MulVec(a, mat.NewVecDense(n, x))
		r.SubVec(b, &ax)
		g.MulVec(a.T(), &r)
		for j := range w {
			w[j] = g.AtVec(j)
		}
	}

	maxIter := 3*n + 30
	gradient()
	for outer := 0; outer < maxIter; outer++ {
		t := -1
		best := tol
		for j := range w {
			if !passive[j] && !blocked[j] && w[j] > best {
				best = w[j]
				t = j
			}
		}
		if t < 0 {
			break
		}
		passive[t] = true

		for inner := 0; inner < maxIter; inner++ {
			s := lsqSubset(a, b, passive, rcond)
			if inner == 0 && s[t] <= tol {
				// Numerically the new column does not help; try the next one.
				passive[t] = false
				blocked[t] = true
				break
			}
			feasible := true
			for j := range s {
				if passive[j] && s[j] <= tol {
					feasible = false
					break
				}
			}
			if feasible {
				copy(x, s)
				for j := range blocked {
					blocked[j] = false
				}
				break
			}
			alpha := 1.0
			for j := range s {
				if passive[j] && s[j] <= tol {
					if step := x[j] / (x[j] - s[j]); step < alpha {
						alpha = step
					}
				}
			}
			for j := range x {
				x[j] += alpha * (s[j] - x[j])
				if passive[j] && x[j] <= tol {
					passive[j] = false
					x[j] = 0
				}
			}
		}
		gradient()
	}
	return x
}

// lsqSubset solves the unconstrained least squares problem restricted to the
// passive columns; the other entries of the result are zero.
func lsqSubset(a *mat.Dense, b *mat.VecDense, passive []bool, rcond float64) []float64 {
	m, n := a.Dims()
	cols := make([]int, 0, n)
	for j, p := range passive {
		if p {
			cols = append(cols, j)
		}
	}
	s := make([]float64, n)
	if len(cols) == 0 {
		return s
	}
	sub := mat.NewDense(m, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < m; i++ {
			sub.Set(i, k, a.At(i, j))
		}
	}
	var svd mat.SVD
	if !svd.Factorize(sub, mat.SVDThin) {
		return s
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return s
	}
	var z mat.VecDense
	svd.SolveVecTo(&z, b, rank)
	for k, j := range cols {
		s[j] = z.AtVec(k)
	}
	return s
}
