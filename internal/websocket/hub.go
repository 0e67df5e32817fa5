package websocket

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/models"
	"github.com/joshuakim/valuefinder/internal/value"
)

// Message types
const (
	MessageTypeGamesUpdate = "games_update"
	MessageTypeValueAlert  = "value_alert"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeError       = "error"
	MessageTypeStatus      = "status"
	MessageTypePong        = "pong"
)

// AllWeeks subscribes a client to every week's updates
const AllWeeks = 0

// Message represents a WebSocket message
type Message struct {
	Type      string             `json:"type"`
	Week      int                `json:"week,omitempty"`
	Games     []models.OutputRow `json:"games,omitempty"`
	Alerts    []value.Alert      `json:"alerts,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Error     string             `json:"error,omitempty"`
	Status    string             `json:"status,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Client subscriptions by week; AllWeeks receives everything
	subscriptions map[int]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe access
	mu sync.RWMutex

	// Metrics
	metrics *metrics.Metrics

	// Configuration
	maxConnections int
}

// NewHub creates a new Hub
func NewHub(m *metrics.Metrics, maxConnections int) *Hub {
	if maxConnections <= 0 {
		maxConnections = 1000
	}
	return &Hub{
		clients:        make(map[*Client]bool),
		subscriptions:  make(map[int]map[*Client]bool),
		register:       make(chan *Client, 256),
		unregister:     make(chan *Client, 256),
		metrics:        m,
		maxConnections: maxConnections,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Check connection limit
	if len(h.clients) >= h.maxConnections {
		log.Printf("WebSocket: Connection rejected - at capacity (%d)", h.maxConnections)
		errMsg := Message{
			Type:      MessageTypeError,
			Error:     "Server at capacity, please try again later",
			Timestamp: time.Now(),
		}
		data, _ := json.Marshal(errMsg)
		client.send <- data
		close(client.send)
		return
	}

	h.clients[client] = true
	h.metrics.RecordConnection()
	log.Printf("WebSocket: Client connected (total: %d)", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		// Remove from all subscriptions
		for week := range h.subscriptions {
			delete(h.subscriptions[week], client)
		}

		close(client.send)
		h.metrics.RecordDisconnection()
		log.Printf("WebSocket: Client disconnected (total: %d)", len(h.clients))
	}
}

// Subscribe adds a client to a week's subscription list
func (h *Hub) Subscribe(client *Client, week int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscriptions[week] == nil {
		h.subscriptions[week] = make(map[*Client]bool)
	}
	h.subscriptions[week][client] = true
	log.Printf("WebSocket: Client subscribed to week %d (subscribers: %d)", week, len(h.subscriptions[week]))
}

// Unsubscribe removes a client from a week's subscription list
func (h *Hub) Unsubscribe(client *Client, week int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscriptions[week] != nil {
		delete(h.subscriptions[week], client)
	}
}

// Broadcast sends updated game rows to clients subscribed to that week or to
// all weeks.
func (h *Hub) Broadcast(week int, games []models.OutputRow) {
	message := Message{
		Type:      MessageTypeGamesUpdate,
		Week:      week,
		Games:     games,
		Timestamp: time.Now(),
	}
	h.broadcast(week, message)
}

// BroadcastAlerts sends value alerts to subscribed clients
func (h *Hub) BroadcastAlerts(week int, alerts []value.Alert) {
	if len(alerts) == 0 {
		return
	}
	message := Message{
		Type:      MessageTypeValueAlert,
		Week:      week,
		Alerts:    alerts,
		Timestamp: time.Now(),
	}
	h.broadcast(week, message)
}

func (h *Hub) broadcast(week int, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("WebSocket: Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	recipients := make(map[*Client]bool, len(h.subscriptions[week])+len(h.subscriptions[AllWeeks]))
	for client := range h.subscriptions[week] {
		recipients[client] = true
	}
	for client := range h.subscriptions[AllWeeks] {
		recipients[client] = true
	}
	h.mu.RUnlock()

	clientCount := len(recipients)
	if clientCount == 0 {
		return
	}

	h.metrics.RecordBroadcast(len(data), clientCount)

	// Send to all subscribers
	var failedClients []*Client
	for client := range recipients {
		select {
		case client.send <- data:
			// Sent successfully
		default:
			// Client's buffer is full - mark for removal
			failedClients = append(failedClients, client)
			h.metrics.RecordMessageFailed()
		}
	}

	// Remove failed clients
	for _, client := range failedClients {
		log.Printf("WebSocket: Removing slow client")
		h.unregister <- client
	}

	log.Printf("WebSocket: Broadcast week %d to %d clients (%d bytes)", week, clientCount-len(failedClients), len(data))
}

// BroadcastStatus sends a status message to all clients
func (h *Hub) BroadcastStatus(status string) {
	message := Message{
		Type:      MessageTypeStatus,
		Status:    status,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Skip slow clients for status messages
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	weekSubs := make(map[string]int)
	for week, clients := range h.subscriptions {
		weekSubs[strconv.Itoa(week)] = len(clients)
	}

	return map[string]interface{}{
		"total_clients":   len(h.clients),
		"max_connections": h.maxConnections,
		"subscriptions":   weekSubs,
	}
}

// CanAccept returns whether the hub can accept new connections
func (h *Hub) CanAccept() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) < h.maxConnections
}

// ClientCount returns the current number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
