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
	return config, nil
}

func printConfiguration(config jitter.Configuration, logger jitter.Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Channels: %v", config.Channels), "config")
	logger.Info(fmt.Sprintf("Polarity: %v", config.Polarity), "config")
	logger.Info(fmt.Sprintf("CFD fraction: %.2f", config.Fraction), "config")
	logger.Info(fmt.Sprintf("Window: [%g, %g] ns", config.RoiStart, config.RoiStop), "config")
	logger.Info(fmt.Sprintf("Collimation: %v", config.Collimation), "config")
	logger.Info(fmt.Sprintf("Stack configuration: %s", config.StackConfig), "config")
	logger.Info(fmt.Sprintf("Thresholds: %v", config.Thresholds), "config")
	logger.Info(fmt.Sprintf("Automatic thresholds: %t", config.AutoThresholds), "config")
	logger.Info(fmt.Sprintf("Noise threshold: %g", config.NoiseThreshold), "config")
	logger.Info(fmt.Sprintf("Pairs: %v", config.Pairs), "config")
	logger.Info(fmt.Sprintf("Variance method: %v", config.VarianceMethod), "config")
	logger.Info(fmt.Sprintf("Min events per pair: %d", config.MinEventsPerPair), "config")
	logger.Info(fmt.Sprintf("Exclude unreliable pairs: %t", config.ExcludeUnreliable), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
}
