package jitter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteReport prints the pair variances and channel jitters as aligned
// tables, followed by the solver diagnostics.
func WriteReport(w io.Writer, meta RunMetadata, r Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if meta.RunID != "" {
		fmt.Fprintf(tw, "Run %s (stack %s)\n", meta.RunID, meta.StackConfig)
	}
	fmt.Fprintf(tw, "Events: %v\n\n", r.Stats)

	fmt.Fprintln(tw, "Pair\tN\tUsed\tMean (ns)\tSigma (ns)\tMethod\tReliable\t")
	for _, pv := range r.Pairs {
		fmt.Fprintf(tw, "%v\t%d\t%d\t%.4f\t%.4f\t%v\t%t\t\n", pv.Pair, pv.N, pv.Used, pv.Mean, pv.Sigma, pv.Method, pv.Reliable)
	}
	fmt.Fprintln(tw)

	sol := r.Solution
	fmt.Fprintln(tw, "Channel\tThreshold\tFailures\tVariance (ns^2)\tJitter (ns)\tFlags\t")
	for _, ch := range r.Channels {
		flags := ""
		if ChannelSet(sol.Clamped).Contains(ch) {
			flags += "clamped "
		}
		if ChannelSet(sol.AtBound).Contains(ch) {
			flags += "at-bound "
		}
		if ChannelSet(sol.Unconstrained).Contains(ch) {
			flags += "unconstrained"
		}
		fmt.Fprintf(tw, "%d\t%g\t%d\t%.4f\t%.4f\t%s\t\n", ch, r.Thresholds[ch], r.FailureCount(ch), sol.Variance[ch], sol.Jitter[ch], flags)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Equations: %d, rank %d/%d, well determined %t, exact %t, cost %.3g\n",
		sol.Equations, sol.Rank, len(sol.Channels), sol.WellDetermined, sol.Exact, sol.Cost)
	if !sol.WellDetermined {
		fmt.Fprintln(tw, "Warning: the pair equations do not determine every channel")
	}
	return tw.Flush()
}
