package notifier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the WebSocket handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// WebSocketDialer returns a Dialer backed by gorilla/websocket. A nil
// dialer uses a copy of websocket.DefaultDialer with DefaultHandshakeTimeout.
func WebSocketDialer(d *websocket.Dialer) Dialer {
	if d == nil {
		copied := *websocket.DefaultDialer
		copied.HandshakeTimeout = DefaultHandshakeTimeout
		d = &copied
	}
	return func(ctx context.Context, url string) (Conn, error) {
		conn, resp, err := d.DialContext(ctx, url, http.Header{})
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func isWebSocketClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway
}

var _ Conn = (*websocket.Conn)(nil)
