package stream

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// Conn is the minimal socket surface the Stream Session needs: send a
// text frame, receive the next text frame, close. Abstracted so tests
// can substitute an in-process fake instead of dialing a real vendor
// media server.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens an outbound Conn to a vendor-supplied signaling or media
// URL. The vendor is the WebSocket server in this protocol; the core
// always dials out.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the production Dialer, backed by coder/websocket client
// dials (the same library the HTTP layer uses on the accept side,
// here generalized to the outbound client side).
type wsDialer struct{}

// NewDialer returns the default outbound WebSocket Dialer.
func NewDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", url, err)
	}
	return &wsConn{c: c}, nil
}

// wsConn adapts coder/websocket.Conn to the Conn interface, fixed to
// text (JSON) frames per the RTMS wire format.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Recv(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "session ended")
}
