package main

import (
	"encoding/json"
	"fmt"
	"os"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

func LoadConfiguration(filename string) (jitter.Configuration, error) {
	config := jitter.DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if len(config.Brokers) == 0 {
		config.Brokers = []string{"localhost:9092"}
	}
	return config, nil
}

func printConfiguration(config jitter.Configuration, logger jitter.Logger) {
	logger.Info(fmt.Sprintf("Brokers: %v", config.Brokers), "config")
	logger.Info(fmt.Sprintf("Topic: %s", config.Topic), "config")
	logger.Info(fmt.Sprintf("Consumer group: %s", config.Group), "config")
	logger.Info(fmt.Sprintf("Report every: %d events", config.ReportEvery), "config")
	logger.Info(fmt.Sprintf("Channels: %v", config.Channels), "config")
	logger.Info(fmt.Sprintf("Polarity: %v", config.Polarity), "config")
	logger.Info(fmt.Sprintf("CFD fraction: %.2f", config.Fraction), "config")
	logger.Info(fmt.Sprintf("Collimation: %v", config.Collimation), "config")
	logger.Info(fmt.Sprintf("Thresholds: %v", config.Thresholds), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
