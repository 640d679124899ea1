package main

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

func consume(ctx context.Context, handler *runHandler) error {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(configuration.Brokers...),
		kgo.ConsumerGroup(configuration.Group),
		kgo.ConsumeTopics(configuration.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cl.Close()
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Consuming %s from %v", configuration.Topic, configuration.Brokers), "consumer")
	}

	for {
		fetches := cl.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			logger.Error(fmt.Sprintf("fetch error on %s/%d: %v", fe.Topic, fe.Partition, fe.Err))
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			if err := handler.handle(record.Value); err != nil {
				message := fmt.Errorf("discarding record at offset %d: %w", record.Offset, err)
				logger.Error(message.Error())
			}
		}
		if err := cl.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			logger.Error(fmt.Sprintf("commit failed: %v", err))
		}
	}
}
