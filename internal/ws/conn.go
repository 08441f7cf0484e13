package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Conn wraps one live websocket connection. The id is the connection
// handle: unique per transport connection, never reused on reconnect.
type Conn struct {
	id       string
	userID   string // empty for anonymous viewers
	userName string
	ws       *websocket.Conn
	out      chan []byte
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// newConn wraps a WS connection with an optional authenticated identity.
func newConn(wsc *websocket.Conn, userID, userName string) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		userID:   userID,
		userName: userName,
		ws:       wsc,
		out:      make(chan []byte, 256),
	}
}

// ID returns the connection handle.
func (c *Conn) ID() string { return c.id }

// senderID attributes actions: the user identity when authenticated,
// otherwise the raw connection handle.
func (c *Conn) senderID() string {
	if c.userID != "" {
		return c.userID
	}
	return c.id
}

func (c *Conn) senderName() string {
	if c.userName != "" {
		return c.userName
	}
	return "anonymous"
}

// send queues an outbound frame without blocking. A slow consumer whose
// buffer is full simply misses the frame; it never stalls the room.
func (c *Conn) send(b []byte) {
	select {
	case c.out <- b:
	default:
	}
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound messages + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
