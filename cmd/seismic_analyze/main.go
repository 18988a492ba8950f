// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/seismic_analyze/main.go
//
// Double-integrates one seismic accelerometer recording into ground
// displacement and prints one line per sample: index sx sy sz.
//
// Run:
//
//	go run ./cmd/seismic_analyze [-config seismic_config.txt] /data/2024-03-17.dat
//
// The recording's start date is taken from its file name (YYYY-MM-DD[.ext]).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/seismic_analyze/internal/app"
	"github.com/relabs-tech/seismic_analyze/internal/config"
)

const version = 4

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	policy := flag.String("policy", "", "Integration policy: trapezoid-position or velocity-integrated")
	sep := flag.String("sep", "", "Output separator: space or comma")
	dbPath := flag.String("db", "", "SQLite database to record the run in")
	mqttOn := flag.Bool("mqtt", false, "Publish displacements over MQTT")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "seismicAnalyze version %d\nUsage:\n  seismic_analyze [flags] <data-file>\n", version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Missing file argument")
		flag.Usage()
		os.Exit(1)
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := *config.Get()

	// Flags override the file.
	if *policy != "" {
		cfg.IntegrationPolicy = *policy
	}
	if *sep != "" {
		cfg.OutputSeparator = *sep
	}
	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}
	if *mqttOn {
		cfg.MQTTEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunAnalyze(ctx, &cfg, flag.Arg(0), os.Stdout); err != nil {
		stop()
		log.Fatalf("fatal: %v", err)
	}
}
