package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/pkg/logger"
)

// MessageHandler is the slice of the editor service the websocket layer
// drives. Defined here so the hub stays ignorant of the service package.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userId uuid.UUID, msg *dto.EditorMessage) (*dto.EditorReply, error)
	OpenStream(ctx context.Context, userId uuid.UUID, streamId uuid.UUID) error
	CloseStream(streamId uuid.UUID)
}

type Hub struct {
	// Registered clients map: StreamID -> attached editor clients
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fanout (optional)
	rdb *redis.Client

	handler MessageHandler
	logger  logger.ILogger

	// instanceId filters out this instance's own messages echoed back by
	// the redis channel.
	instanceId string
}

func NewHub(rdb *redis.Client, handler MessageHandler, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		handler:    handler,
		logger:     log,
		instanceId: uuid.New().String(),
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.StreamID] = append(h.clients[client.StreamID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"stream_id": client.StreamID,
				"user_id":   client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			lastForStream := false
			if clients, ok := h.clients[client.StreamID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.StreamID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.StreamID]) == 0 {
					delete(h.clients, client.StreamID)
					lastForStream = true
				}
			}
			h.mu.Unlock()

			if lastForStream {
				// Last editor left: flush pending writes and drop the session.
				h.handler.CloseStream(client.StreamID)
				h.logger.Info("Hub", "Stream session released", map[string]interface{}{
					"stream_id": client.StreamID,
				})
			}
		}
	}
}

// BroadcastToStream sends a payload to every client attached to a stream,
// here and on other instances via redis.
func (h *Hub) BroadcastToStream(streamId uuid.UUID, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal broadcast payload", map[string]interface{}{
			"error":     err,
			"stream_id": streamId,
		})
		return
	}

	h.deliverLocal(streamId, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"stream_id": streamId.String(),
			"origin":    h.instanceId,
			"message":   json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "stream_events", envelope)
	}
}

func (h *Hub) deliverLocal(streamId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[streamId]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{
				"stream_id": streamId,
				"user_id":   client.UserID,
			})
			// The unregister path closes the channel.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "stream_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			StreamID string          `json:"stream_id"`
			Origin   string          `json:"origin"`
			Message  json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		if payload.Origin == h.instanceId {
			continue // already delivered locally
		}

		streamId, err := uuid.Parse(payload.StreamID)
		if err != nil {
			continue
		}
		h.deliverLocal(streamId, payload.Message)
	}
}
