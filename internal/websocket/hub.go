package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/metrics"
)

// Message types pushed to dashboard clients.
const (
	TypeAlert   = "alert"
	TypeRecord  = "record"
	TypeHistory = "history"
)

type message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func encode(kind string, payload interface{}) ([]byte, error) {
	b, err := json.Marshal(message{Type: kind, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", kind, err)
	}
	return b, nil
}

// Hub maintains the set of active clients and broadcasts alerts and
// classified records to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      *atomic.Int64
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		count:      atomic.NewInt64(0),
		logger:     logger,
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.logger.Info("websocket client registered", zap.String("remote", client.remote))

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
				h.logger.Info("websocket client unregistered", zap.String("remote", client.remote))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.logger.Warn("websocket client too slow, removing", zap.String("remote", client.remote))
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

// Clients reports the number of registered connections.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// publish queues msg for every client. It never blocks; a full queue drops msg.
func (h *Hub) publish(msg []byte) error {
	select {
	case h.broadcast <- msg:
		return nil
	default:
		return ErrBroadcastFull
	}
}

func (h *Hub) Name() string { return "websocket" }

// Send broadcasts an alert.
func (h *Hub) Send(_ context.Context, alert *data.Alert) error {
	msg, err := encode(TypeAlert, alert)
	if err != nil {
		return err
	}
	return h.publish(msg)
}

// Emit broadcasts a classified record.
func (h *Hub) Emit(_ context.Context, rec *data.ClassifiedRecord) error {
	msg, err := encode(TypeRecord, rec)
	if err != nil {
		return err
	}
	return h.publish(msg)
}
