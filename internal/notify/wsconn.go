package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// WSConn adapts a gorilla websocket connection to Conn. Writes are
// serialized; reads belong to the goroutine running ReadLoop.
type WSConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	conn.SetReadLimit(maxMessageSize)
	return &WSConn{conn: conn}
}

func (w *WSConn) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadLoop answers "ping" text frames with a pong event and returns when
// the peer goes away or ctx is cancelled.
func (w *WSConn) ReadLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { w.Close() })
	defer stop()

	for {
		kind, msg, err := w.conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind == websocket.TextMessage && string(msg) == "ping" {
			if err := Send(ctx, w, Pong{}); err != nil {
				return err
			}
		}
	}
}

func (w *WSConn) Close() error {
	w.closeOnce.Do(func() {
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
