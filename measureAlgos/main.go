package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

var configuration jitter.Configuration

var (
	logger         jitter.SlogLogger
	VerbosityLevel int
)

func init() {
	logger = jitter.NewConsoleLogger()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	fractionList := flag.String("fractions", "0.1,0.2,0.3,0.4,0.5,0.6,0.7", "Comma separated CFD fractions")
	methodList := flag.String("methods", "fit,sample", "Comma separated variance methods")
	nSynthetic := flag.Int("events", 5000, "Number of synthetic events when no input run is given")
	seed := flag.Uint64("seed", 1, "Seed of the synthetic generator")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	jitter.SetLogger(logger)
	VerbosityLevel = configuration.Verbosity

	fractions, err := parseFractions(*fractionList)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	methods, err := parseMethods(*methodList)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	var events []jitter.Event
	var truth map[jitter.ChannelID]float64
	if configuration.FileIn != "" {
		run, err := jitter.LoadRun(configuration.FileIn, configuration.ChannelSet())
		if err != nil {
			message := fmt.Errorf("Error reading run: %w", err)
			logger.Error(message.Error())
			os.Exit(1)
		}
		if run.Metadata.RunNumber > 0 {
			configuration.StackConfig = run.Metadata.StackConfig
		}
		events = run.Events(configuration.Skip, configuration.MaxEvents)
	} else {
		opts := jitter.DefaultSyntheticOptions()
		opts.Seed = *seed
		opts.Channels = configuration.ChannelSet()
		if configuration.Polarity != jitter.PolarityUnset {
			opts.Polarity = configuration.Polarity
		}
		configuration.Polarity = opts.Polarity
		if !configuration.AutoThresholds {
			thresholds := make(map[jitter.ChannelID]float64, len(opts.Channels))
			for _, ch := range opts.Channels {
				thresholds[ch] = configuration.CutFloor
				if t, ok := configuration.Thresholds[ch]; ok {
					thresholds[ch] = t
				}
			}
			configuration.Thresholds = thresholds
		}
		truth = opts.Sigma
		events = jitter.NewGenerator(opts).Events(*nSynthetic)
	}
	logger.Info(fmt.Sprintf("Events: %d, fractions: %v, methods: %v", len(events), fractions, methods), "main")

	points := make([]ScanPoint, 0, len(fractions)*len(methods))
	for _, f := range fractions {
		for _, m := range methods {
			points = append(points, ScanPoint{Index: len(points), Fraction: f, Method: m})
		}
	}

	start := time.Now()
	results := runScan(events, configuration, points, configuration.NumWorkers)
	if err := printScan(os.Stdout, configuration.ChannelSet(), results, truth); err != nil {
		logger.Error(err.Error())
	}
	if pair, ok := jitter.MiddlePair(configuration.StackConfig); ok {
		channels := []jitter.ChannelID{pair.A, pair.B}
		if err := printTriggerSpreads(os.Stdout, channels, results, configuration.MinEventsPerPair); err != nil {
			logger.Error(err.Error())
		}
	}
	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
}

// printScan writes one row per scan point. With a known truth the last
// column is the RMS deviation of the recovered jitters, in ns.
func printScan(w io.Writer, channels jitter.ChannelSet, results []ScanResult, truth map[jitter.ChannelID]float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "Fraction\tMethod\tTime (ms)\tKept\t")
	for _, ch := range channels {
		fmt.Fprintf(tw, "Ch%d (ns)\t", ch)
	}
	if truth != nil {
		fmt.Fprint(tw, "RMS dev (ns)\t")
	}
	fmt.Fprintln(tw)

	for _, res := range results {
		fmt.Fprintf(tw, "%.2f\t%v\t%d\t", res.Point.Fraction, res.Point.Method, res.Duration.Milliseconds())
		if res.Err != nil {
			fmt.Fprintf(tw, "error: %v\t\n", res.Err)
			continue
		}
		fmt.Fprintf(tw, "%d\t", res.Result.Stats.Accepted)
		for _, ch := range channels {
			fmt.Fprintf(tw, "%.4f\t", res.Result.Solution.Jitter[ch])
		}
		if truth != nil {
			fmt.Fprintf(tw, "%.4f\t", rmsDeviation(res.Result.Solution.Jitter, truth, channels))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// printTriggerSpreads compares, for the middle detectors, the spread of the
// arrival time with respect to the trigger at every scan point.
func printTriggerSpreads(w io.Writer, channels []jitter.ChannelID, results []ScanResult, minEvents int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "Fraction\tMethod\t")
	for _, ch := range channels {
		fmt.Fprintf(tw, "Ch%d vs trigger (ns)\t", ch)
	}
	fmt.Fprintln(tw)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		fmt.Fprintf(tw, "%.2f\t%v\t", res.Point.Fraction, res.Point.Method)
		for _, s := range jitter.TriggerSpreads(res.Result.Summaries, channels, minEvents) {
			if s.Reliable {
				fmt.Fprintf(tw, "%.4f\t", s.Sigma)
			} else {
				fmt.Fprintf(tw, "%.4f (%d events)\t", s.Sigma, s.N)
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func rmsDeviation(got, want map[jitter.ChannelID]float64, channels jitter.ChannelSet) float64 {
	sum := 0.0
	for _, ch := range channels {
		d := got[ch] - want[ch]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(channels)))
}
