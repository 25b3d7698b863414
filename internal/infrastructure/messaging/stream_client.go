package messaging

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamClient represents a single connected websocket listener.
type StreamClient struct {
	Conn        *websocket.Conn
	AnonymousID string
	Send        chan []byte
}

// Serve pumps broadcast messages to the connection until the peer goes away
// or done is closed. It unregisters the client before returning.
func (c *StreamClient) Serve(b Broadcaster, done <-chan struct{}) {
	defer func() {
		b.RemoveClient(c.Send, c.AnonymousID)
		c.Conn.Close()
	}()

	gone := make(chan struct{})
	go c.readPump(gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-done:
			c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// readPump discards inbound frames; it exists to process control frames.
func (c *StreamClient) readPump(gone chan<- struct{}) {
	defer close(gone)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
