package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/flasherpro/console/internal/auth"
)

// Handle returns an HTTP handler that upgrades connections and runs
// them as hub clients under the caller's identity. Callers gate it
// behind the auth middleware.
func Handle(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			// Cross-origin dashboards connect with the session token;
			// auth already happened in the middleware chain.
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		logger.Debug("console connected", "email", auth.Email(r.Context()))
		client := NewClient(hub, conn, id.UserID)
		client.Run(r.Context())
	}
}
