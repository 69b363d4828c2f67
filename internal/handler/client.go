package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"camdash/internal/logger"
	"camdash/internal/service/hub"
)

// Upgrader upgrades progress connections. Only same-origin pages connect.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ProgressWebsocketHandler registers the browser in the hub so it receives
// download progress snapshots. The read loop only detects the disconnect.
func ProgressWebsocketHandler(h *hub.Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		h.Register(connection)
		defer h.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Progress viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}
