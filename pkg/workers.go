package jitter

import (
	"context"
	"fmt"
	"sync"
)

type workerResult struct {
	Summary EventSummary
	Err     error
}

func worker(id int, jobs <-chan Event, results chan<- workerResult, channels ChannelSet, opts CFDOptions, verbosity int) {
	for event := range jobs {
		if verbosity > 2 {
			logger.Info(fmt.Sprintf("Worker %d processing event %d", id, event.EventID), "workers")
		}
		results <- summarizeRecovering(id, event, channels, opts)
	}
}

func summarizeRecovering(id int, event Event, channels ChannelSet, opts CFDOptions) (result workerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = workerResult{
				Summary: EventSummary{EventID: event.EventID},
				Err:     fmt.Errorf("worker %d recovered from panic on event %d: %v", id, event.EventID, r),
			}
		}
	}()
	summary, err := SummarizeEvent(event, channels, opts)
	return workerResult{Summary: summary, Err: err}
}

func sendEventsToWorkers(ctx context.Context, events []Event, jobs chan<- Event) {
	defer close(jobs)
	for _, event := range events {
		select {
		case jobs <- event:
		case <-ctx.Done():
			return
		}
	}
}

// SummarizeEvents runs SummarizeEvent over the batch on config.NumWorkers
// goroutines. The returned summaries are in completion order; Reduce sorts
// them.
func SummarizeEvents(ctx context.Context, events []Event, config Configuration) ([]EventSummary, error) {
	numWorkers := config.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	channels := config.ChannelSet()
	opts := config.CFDOptions()

	jobs := make(chan Event, 2*numWorkers)
	results := make(chan workerResult, 2*numWorkers)

	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, jobs, results, channels, opts, config.Verbosity)
		}(w)
	}
	go sendEventsToWorkers(ctx, events, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	summaries := make([]EventSummary, 0, len(events))
	var firstErr error
	for res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			logger.Error(res.Err.Error())
			continue
		}
		summaries = append(summaries, res.Summary)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if config.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Summarized %d events with %d workers", len(summaries), numWorkers), "workers")
	}
	return summaries, nil
}
