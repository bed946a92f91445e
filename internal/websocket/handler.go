package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches an editor connection to a stream. The stream session is
// opened (hydrated from the database) before the first frame is read.
func ServeWs(hub *Hub, c *websocket.Conn, userID, streamID uuid.UUID) {
	if err := hub.handler.OpenStream(context.Background(), userID, streamID); err != nil {
		hub.logger.Warn("Hub", "Failed to open stream session", map[string]interface{}{
			"error":     err,
			"stream_id": streamID,
			"user_id":   userID,
		})
		c.Close()
		return
	}

	client := &Client{Hub: hub, Conn: c, UserID: userID, StreamID: streamID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
