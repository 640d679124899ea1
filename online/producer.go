package main

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

// replay publishes the events of a run directory to the topic, keyed by run
// number so that a run stays on one partition.
func replay(ctx context.Context, dir string) error {
	run, err := jitter.LoadRun(dir, configuration.ChannelSet())
	if err != nil {
		return err
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(configuration.Brokers...),
		kgo.DefaultProduceTopic(configuration.Topic),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cl.Close()

	key := jitter.EventKey(run.Metadata.RunNumber)
	events := run.Events(configuration.Skip, configuration.MaxEvents)
	for _, event := range events {
		value, err := jitter.EncodeEvent(event, run.Metadata.RunNumber)
		if err != nil {
			return err
		}
		record := &kgo.Record{Key: key, Value: value}
		if err := cl.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("error producing event %d: %w", event.EventID, err)
		}
		if VerbosityLevel > 1 {
			logger.Info(fmt.Sprintf("Produced event %d", event.EventID), "producer")
		}
	}
	logger.Info(fmt.Sprintf("Replayed %d events of %s", len(events), run.Metadata.RunID), "producer")
	return nil
}
