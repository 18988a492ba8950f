package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/seismic_analyze/internal/config"
	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/sink"
)

// RunConsoleMQTT prints displacements and run summaries published by
// seismic_analyze until interrupted.
func RunConsoleMQTT(cfg *config.Config) error {
	formatter, err := cfg.Formatter()
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to displacements
	if err := subscribe(client, cfg.TopicDisplacement, displacementPrinter(os.Stdout, formatter)); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicDisplacement)

	// Subscribe to run summaries
	if cfg.TopicSummary != "" {
		if err := subscribe(client, cfg.TopicSummary, summaryPrinter(os.Stdout)); err != nil {
			return err
		}
		log.Printf("console: subscribed to %s", cfg.TopicSummary)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func displacementPrinter(w io.Writer, f sink.Formatter) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var d integrate.Displacement
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("console: displacement unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(w, f.Format(d))
	}
}

func summaryPrinter(w io.Writer) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var r Report
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: summary unmarshal error: %v", err)
			return
		}
		fmt.Fprintf(w,
			"[RUN] %s policy=%s readings=%d emitted=%d duration=%.3fs final=(%s, %s, %s)\n",
			r.Source, r.Policy, r.Readings, r.Emitted, r.Duration(),
			sink.FormatFloat(r.Final.X), sink.FormatFloat(r.Final.Y), sink.FormatFloat(r.Final.Z),
		)
	}
}
