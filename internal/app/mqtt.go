package app

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// connectMQTT connects to broker and waits for the connection to complete.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error (%s): %w", broker, token.Error())
	}
	return client, nil
}

// subscribe subscribes handler to topic and waits for the broker to confirm.
func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe (%s): %w", topic, token.Error())
	}
	return nil
}
