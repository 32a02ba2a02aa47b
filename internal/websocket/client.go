package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	outboxSize   = 16
	pingInterval = 30 * time.Second
)

// Client is one authenticated WebSocket connection. The stream is
// server-to-client only; inbound frames are drained and dropped.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	outbox chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		outbox: make(chan []byte, outboxSize),
	}
}

// deliver queues a frame without blocking. A slow console drops
// frames instead of stalling the hub.
func (c *Client) deliver(data []byte) {
	select {
	case c.outbox <- data:
	default:
	}
}

// Run registers the connection under its user and services it until
// the peer goes away, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c, c.userID)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop(ctx)
	}()

	// Drain inbound frames so pongs and close frames are processed.
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			break
		}
	}
	cancel()
	<-done
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}
