package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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
	replayDir := flag.String("replay", "", "Publish the events of this run directory instead of consuming")
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
		printConfiguration(configuration, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *replayDir != "" {
		if err := replay(ctx, *replayDir); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	if err := configuration.Validate(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	handler := newRunHandler(configuration, os.Stdout)
	if err := consume(ctx, handler); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	handler.reportAll()
}
