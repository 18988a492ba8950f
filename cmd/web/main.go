// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/seismic_analyze/internal/app"
	"github.com/relabs-tech/seismic_analyze/internal/config"
)

func main() {
	configPath := flag.String("config", "seismic_config.txt", "Path to configuration file")
	flag.Parse()

	log.Println("starting seismic web server (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: displacements only arrive while seismic_analyze runs with MQTT_ENABLED=true")

	if err := app.RunWeb(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
