// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/seismic_analyze/internal/config"
	"github.com/relabs-tech/seismic_analyze/internal/integrate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Hub keeps the latest displacement and streams new ones to websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    integrate.Displacement
	have    bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// Publish records d as the latest displacement and sends it to every client.
// Clients that fail to receive it are dropped.
func (h *Hub) Publish(d integrate.Displacement) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = d
	h.have = true
	for conn := range h.clients {
		if err := conn.WriteJSON(d); err != nil {
			log.Printf("web: websocket write error: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Latest returns the most recent displacement, if any.
func (h *Hub) Latest() (integrate.Displacement, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.have
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleLatest serves the latest displacement as JSON.
func (h *Hub) HandleLatest(w http.ResponseWriter, r *http.Request) {
	d, ok := h.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// HandleWS upgrades the request and streams displacements until the client
// goes away. A new client first receives the latest displacement, if any.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	if h.have {
		if err := conn.WriteJSON(h.last); err != nil {
			log.Printf("web: websocket write error: %v", err)
		}
	}
	h.mu.Unlock()

	// Drain control frames until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// MessageHandler feeds displacements received over MQTT into the hub.
func (h *Hub) MessageHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var d integrate.Displacement
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		h.Publish(d)
	}
}

// Routes returns the web API.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/displacement", h.HandleLatest)
	mux.HandleFunc("GET /ws/displacement", h.HandleWS)
	return mux
}

// RunWeb serves the latest displacement and a websocket stream of new ones,
// fed from the MQTT displacement topic.
func RunWeb(cfg *config.Config) error {
	hub := NewHub()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to displacement topic and update the hub on each message
	if err := subscribe(client, cfg.TopicDisplacement, hub.MessageHandler()); err != nil {
		return err
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicDisplacement)

	// 3) JSON API and websocket stream
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, hub.Routes())
}
