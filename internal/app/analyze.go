// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/seismic_analyze/internal/config"
	"github.com/relabs-tech/seismic_analyze/internal/epoch"
	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/pipeline"
	"github.com/relabs-tech/seismic_analyze/internal/reading"
	"github.com/relabs-tech/seismic_analyze/internal/record"
	"github.com/relabs-tech/seismic_analyze/internal/sink"
	"github.com/relabs-tech/seismic_analyze/internal/store"
)

// Report is the summary published and logged at the end of a run.
type Report struct {
	RunID  string    `json:"run_id,omitempty"`
	Source string    `json:"source"`
	Epoch  time.Time `json:"epoch"`
	Policy string    `json:"policy"`
	pipeline.Summary
}

// RunAnalyze integrates the recording at path and writes one line per
// displacement to stdout. Depending on cfg the series is also published over
// MQTT and stored in SQLite.
func RunAnalyze(ctx context.Context, cfg *config.Config, path string, stdout io.Writer) error {
	log.Printf("analyze: starting %s (policy=%s)", path, cfg.IntegrationPolicy)

	// The epoch comes from the file name and must be valid before any I/O.
	start, err := epoch.FromPath(path)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	formatter, err := cfg.Formatter()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", record.ErrSourceUnavailable, err)
	}
	defer f.Close()

	text := sink.NewText(stdout, formatter)
	sinks := sink.Multi{text}
	report := Report{Source: path, Epoch: start, Policy: policy.Name()}

	// --- optional MQTT publishing ---
	var mq *sink.MQTT
	if cfg.MQTTEnabled {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDAnalyze)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Printf("analyze: connected to MQTT broker at %s", cfg.MQTTBroker)

		mq = sink.NewMQTT(client, cfg.TopicDisplacement, cfg.TopicSummary)
		sinks = append(sinks, mq)
	}

	// --- optional run persistence ---
	var run *store.Run
	if cfg.SQLitePath != "" {
		st, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err = st.BeginRun(path, start, policy.Name())
		if err != nil {
			return err
		}
		report.RunID = run.ID()
		log.Printf("analyze: recording run %s in %s", run.ID(), cfg.SQLitePath)
		sinks = append(sinks, run)
	}

	src := pipeline.NewReadings(
		record.NewDecoder(bufio.NewReader(f)),
		reading.Converter{Epoch: start, ScaleFactor: cfg.SensorScaleFactor},
	)
	sum, runErr := pipeline.Run(ctx, src, integrate.New(policy, cfg.Gravity), sinks)
	report.Summary = sum

	// Lines emitted before a failure are still written out.
	if err := text.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush output: %w", err)
	}

	if run != nil {
		if runErr != nil {
			if err := run.Abort(runErr); err != nil {
				log.Printf("analyze: %v", err)
			}
		} else if err := run.Finish(sum); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("analyze %s: %w", path, runErr)
	}

	if mq != nil {
		if err := mq.PublishSummary(report); err != nil {
			log.Printf("analyze: %v", err)
		}
	}

	log.Printf("analyze: done %s: %d readings, %d displacements over %.3fs | final sx=%s sy=%s sz=%s | peak |s| x=%s y=%s z=%s",
		path, sum.Readings, sum.Emitted, sum.Duration(),
		sink.FormatFloat(sum.Final.X), sink.FormatFloat(sum.Final.Y), sink.FormatFloat(sum.Final.Z),
		sink.FormatFloat(sum.Peak.X), sink.FormatFloat(sum.Peak.Y), sink.FormatFloat(sum.Peak.Z),
	)
	return nil
}
