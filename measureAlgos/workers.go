package main

import (
	"context"
	"fmt"
	"time"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

type ScanPoint struct {
	Index    int
	Fraction float64
	Method   jitter.VarianceMethod
}

type ScanResult struct {
	Point    ScanPoint
	Result   jitter.Result
	Duration time.Duration
	Err      error
}

func worker(id int, events []jitter.Event, config jitter.Configuration, jobs <-chan ScanPoint, results chan<- ScanResult) {
	for point := range jobs {
		if VerbosityLevel > 1 {
			logger.Info(fmt.Sprintf("Worker %d: fraction %.2f, %v", id, point.Fraction, point.Method), "worker")
		}
		results <- runScanPoint(events, config, point)
	}
}

func runScanPoint(events []jitter.Event, config jitter.Configuration, point ScanPoint) (res ScanResult) {
	res.Point = point
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("recovered from panic at fraction %.2f: %v", point.Fraction, r)
		}
	}()

	config.Fraction = point.Fraction
	config.VarianceMethod = point.Method
	config.NumWorkers = 1
	start := time.Now()
	res.Result, res.Err = jitter.Analyse(context.Background(), events, config)
	res.Duration = time.Since(start)
	return res
}

func sendPointsToWorkers(points []ScanPoint, jobs chan<- ScanPoint) {
	for _, p := range points {
		jobs <- p
	}
	close(jobs)
}

// runScan evaluates every point with numWorkers concurrent analyses and
// returns the results in point order.
func runScan(events []jitter.Event, config jitter.Configuration, points []ScanPoint, numWorkers int) []ScanResult {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan ScanPoint, len(points))
	results := make(chan ScanResult, len(points))
	for w := 1; w <= numWorkers; w++ {
		go worker(w, events, config, jobs, results)
	}
	go sendPointsToWorkers(points, jobs)

	ordered := make([]ScanResult, len(points))
	for range points {
		res := <-results
		ordered[res.Point.Index] = res
	}
	return ordered
}
