// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
)

// Publisher is the part of mqtt.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every displacement as JSON to a topic.
type MQTT struct {
	client       Publisher
	topic        string
	summaryTopic string
}

// NewMQTT returns a sink publishing displacements to topic and the run
// summary to summaryTopic. An empty summaryTopic disables summaries.
func NewMQTT(client Publisher, topic, summaryTopic string) *MQTT {
	return &MQTT{client: client, topic: topic, summaryTopic: summaryTopic}
}

// Emit publishes d and waits for the broker to accept it.
func (m *MQTT) Emit(d integrate.Displacement) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("json marshal displacement: %w", err)
	}
	if token := m.client.Publish(m.topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", m.topic, token.Error())
	}
	return nil
}

// PublishSummary publishes v as the retained summary of the run.
func (m *MQTT) PublishSummary(v any) error {
	if m.summaryTopic == "" {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal summary: %w", err)
	}
	if token := m.client.Publish(m.summaryTopic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", m.summaryTopic, token.Error())
	}
	return nil
}
