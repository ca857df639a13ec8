package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The CORS middleware owns origin policy for the REST surface;
		// alert frames carry no credentials or secrets.
		return true
	},
}

// AlertMessage is the frame pushed to subscribed clients.
type AlertMessage struct {
	Type    string `json:"type"` // "budget_alert", "hello"
	Payload any    `json:"payload"`
}

// BudgetAlertPayload tells a client one budget crossed its alert threshold.
type BudgetAlertPayload struct {
	BudgetID     int64     `json:"budgetId"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Month        string    `json:"month"`
	SpentCents   int64     `json:"spentCents"`
	LimitCents   int64     `json:"limitCents"`
	Ratio        float64   `json:"ratio"`
	Threshold    float64   `json:"alertThreshold"`
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
}

// Client is one WebSocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers and fans budget alerts out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	once       sync.Once
	mu         sync.RWMutex
}

// NewHub creates an alert hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

// Run owns the client set. It blocks until ctx is done or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("Alert subscriber connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnections.Dec()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Alert subscriber disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.WebSocketMessagesSent.Inc()
				default:
					// Subscriber stopped draining; drop it.
					close(client.send)
					delete(h.clients, client)
					metrics.WebSocketConnections.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop terminates Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BudgetAlert broadcasts a threshold crossing to every subscriber. It never
// blocks the caller: when the broadcast buffer is full the alert is dropped
// and logged.
func (h *Hub) BudgetAlert(p store.BudgetProgress) {
	payload := BudgetAlertPayload{
		BudgetID:     p.BudgetID,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Month:        p.Month,
		SpentCents:   p.SpentCents,
		LimitCents:   p.LimitCents,
		Ratio:        p.Ratio,
		Threshold:    p.AlertThreshold,
		Message: fmt.Sprintf("%s spending reached %.0f%% of the %s budget (%s of %s)",
			p.CategoryName, p.Ratio*100, p.Month,
			utils.FormatCents(p.SpentCents), utils.FormatCents(p.LimitCents)),
		At: time.Now().UTC(),
	}

	data, err := json.Marshal(AlertMessage{Type: "budget_alert", Payload: payload})
	if err != nil {
		logger.Error("Failed to marshal budget alert", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
		metrics.BudgetAlertsSent.Inc()
	default:
		logger.Warn("Alert broadcast buffer full, dropping budget alert", "budget_id", p.BudgetID)
	}
}

// readPump drains the connection so pings and close frames get processed.
// The alert stream is one-way; inbound frames are discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			break
		}
	}
}

// writePump forwards hub messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Fold queued alerts into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeAlerts upgrades the connection and subscribes it to budget alerts.
// GET /ws/alerts
func ServeAlerts(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the client.
			logger.Error("Failed to upgrade to WebSocket", "error", err)
			return
		}

		client := &Client{hub: hub, conn: conn, send: make(chan []byte, 64)}
		hub.register <- client

		hello, _ := json.Marshal(AlertMessage{
			Type:    "hello",
			Payload: map[string]any{"subscribed": "budget_alerts"},
		})
		select {
		case client.send <- hello:
		default:
		}

		go client.writePump()
		go client.readPump()
	}
}
