package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/flasherpro/console/internal/gate"
)

type wsMessage struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Watch follows the console's live update stream and turns remote
// session revocations into SIGNED_OUT events. The server only delivers
// session events to the authenticated connection, so any revocation seen
// here is for this session's user. It reconnects with a fixed backoff
// until ctx is cancelled. Messages for other entities are forwarded to
// onChange when it is non-nil.
func (c *Client) Watch(ctx context.Context, onChange func(entity, action string, id int64)) {
	for {
		if err := c.watchOnce(ctx, onChange); err != nil {
			c.logger.Warn("watch connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *Client) watchOnce(ctx context.Context, onChange func(entity, action string, id int64)) error {
	headers := http.Header{}
	if token := c.token(); token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, c.baseURL+"/ws", &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.logger.Debug("watch connected")
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("bad watch message", "error", err)
			continue
		}

		if msg.Entity == "session" && msg.Action == "revoked" {
			c.clearToken()
			c.emit(gate.Event{Kind: gate.EventSignedOut, Session: nil})
			continue
		}
		if onChange != nil {
			onChange(msg.Entity, msg.Action, msg.ID)
		}
	}
}
