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

	log.Println("starting seismic console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
