package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
	sqlx "github.com/jmoiron/sqlx"
)

var dbConn *sqlx.DB
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
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
	}

	start := time.Now()
	run, err := jitter.LoadRun(configuration.FileIn, configuration.ChannelSet())
	if err != nil {
		message := fmt.Errorf("Error reading run: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if run.Metadata.RunNumber > 0 {
		configuration.StackConfig = run.Metadata.StackConfig
		if configuration.RunNumber == 0 {
			configuration.RunNumber = run.Metadata.RunNumber
		}
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Run %s: %d events of %d samples", run.Metadata.RunID, run.NumEvents, len(run.Time))
		logger.Info(message, "main")
	}

	if !configuration.NoDB {
		dbConn, err = jitter.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connection to database: %w", err)
			logger.Error(message.Error())
			os.Exit(1)
		}
		defer dbConn.Close()

		conditions, err := jitter.LoadRunConditions(dbConn, configuration.RunNumber, VerbosityLevel)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		if err := conditions.Apply(&configuration); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}
	if VerbosityLevel > 0 {
		printConfiguration(configuration, logger)
	}

	events := readEvents(NewRunReader(run))
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Events to analyse: %d", len(events))
		logger.Info(message, "main")
	}

	result, err := jitter.Analyse(context.Background(), events, configuration)
	if err != nil {
		message := fmt.Errorf("Error estimating jitter: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if err := jitter.WriteReport(os.Stdout, run.Metadata, result); err != nil {
		logger.Error(err.Error())
	}

	if configuration.WriteData {
		if err := writeOutput(run.Metadata, result); err != nil {
			message := fmt.Errorf("Error writing output: %w", err)
			logger.Error(message.Error())
			os.Exit(1)
		}
	}

	duration := time.Since(start)
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
	}
}

func writeOutput(meta jitter.RunMetadata, result jitter.Result) error {
	writer, err := jitter.NewWriter(configuration.FileOut, configuration.CompressionLevel)
	if err != nil {
		return err
	}
	if err := writer.WriteSummaries(result.Summaries); err != nil {
		writer.Close()
		return err
	}
	if err := writer.WriteResult(meta, result); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
