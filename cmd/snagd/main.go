package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/snagd/snagd/internal"
	"github.com/snagd/snagd/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. It loads the user
// configuration, constructs the server and runs it until an interrupt
// or termination signal is received.
func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	verbosity := flag.Int("verbosity", logger.INFO.Level(), "minimum log level to emit (0=verbose ... 5=fatal)")
	flag.Parse()

	logger.SetMinLoggingLevel(*verbosity)

	config := internal.SnagdConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %s\n", err.Error())
		os.Exit(1)
	}

	snagd, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise snagd: %s\n", err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := snagd.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "snagd stopped with error: %s\n", err.Error())
		os.Exit(1)
	}

	log.Emit(logger.STOP, "--- snagd shut down ---\n")
}
