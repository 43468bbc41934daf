package hub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 15 * time.Second
	pongTimeout  = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The panel serves trusted LAN clients and CLI watchers, not
	// browsers with ambient credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams the broadcaster's payloads
// as JSON text frames until the client goes away. The handler returns
// when the connection dies.
func ServeWS[T any](b *Broadcaster[T], w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := b.Subscribe()
	defer sub.Close()

	done := make(chan struct{})

	// Read loop exists only to notice the peer closing and to service
	// control frames. Closing the subscription unblocks the write loop.
	go func() {
		defer sub.Close()
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Ping keepalive.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		payload, ok := sub.Next()
		if !ok {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeTimeout),
			)
			return
		}

		select {
		case <-done:
			return
		default:
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			logger.Debug("websocket write failed", "err", err)
			return
		}
	}
}
