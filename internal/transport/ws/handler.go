package ws

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"github.com/whisper-chat/relay/internal/service"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket. The connection
// is accepted unauthenticated; the client must send an authenticate event
// before anything else, or the read pump closes the connection.
func ServeWS(relay *service.RelayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			logrus.Errorf("ws: accept error: %v", err)
			return
		}
		conn.SetReadLimit(maxMessageSize)

		client := NewClient(conn, relay)
		go client.WritePump()
		go client.ReadPump()
	}
}
