package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// SerializedWriter wraps a WebSocket connection with a mutex so
// concurrent action calls never interleave frames on the wire. It
// implements correlator.Sender.
type SerializedWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSerializedWriter wraps conn for exclusive-write access.
func NewSerializedWriter(conn *websocket.Conn) *SerializedWriter {
	return &SerializedWriter{conn: conn}
}

// Send writes frame as a single text message, serialized against any
// concurrent Send call. ctx cancellation is not honored mid-write:
// gorilla/websocket writes are not cancellable once started, so a
// timeout is applied as a write deadline instead.
func (w *SerializedWriter) Send(ctx context.Context, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := w.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
