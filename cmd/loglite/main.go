// Command loglite runs the log ingestion and search service as a single
// process: HTTP API, file tailer, and retention collector.
package main

import (
	"flag"
	"fmt"
	"os"

	"loglite/internal/app"
	"loglite/internal/config"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	flag.Parse()

	if configFile == "" {
		if envConfigFile := os.Getenv(config.EnvConfigFile); envConfigFile != "" {
			configFile = envConfigFile
		} else {
			configFile = "./configs/loglite.yaml"
		}
	}

	if _, err := os.Stat(configFile); err != nil {
		configFile = ""
	}

	a, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create loglite: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "loglite exited with error: %v\n", err)
		os.Exit(1)
	}
}
