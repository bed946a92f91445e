package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // paste fragments can be large
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// StreamID this editor is attached to
	StreamID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump pumps editor messages from the websocket connection into the
// editor service and writes replies back.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for user %s: %v", c.UserID, err)
			}
			break
		}

		var msg dto.EditorMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(uuid.Nil, "malformed message")
			continue
		}
		// A connection only speaks for the stream it attached to.
		msg.StreamId = c.StreamID

		reply, err := c.Hub.handler.HandleMessage(context.Background(), c.UserID, &msg)
		if err != nil {
			c.sendError(msg.CellId, err.Error())
			continue
		}
		if reply != nil {
			if data, err := json.Marshal(reply); err == nil {
				c.Send <- data
			}
		}
	}
}

func (c *Client) sendError(cellId uuid.UUID, message string) {
	data, err := json.Marshal(dto.EditorReply{
		Type:     "error",
		StreamId: c.StreamID,
		CellId:   cellId,
		Error:    message,
	})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued frames into the same write.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
