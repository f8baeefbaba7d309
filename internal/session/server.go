package session

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// maxFrameSize tolerates the largest inline media frame the upstream
// protocol may send: at least 1 GiB per the wire contract.
const maxFrameSize = 1 << 30

// closeWriteDeadline bounds how long the server waits to flush a close
// control frame before dropping the connection.
const closeWriteDeadline = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler builds the "/ws/{client_id}" HTTP handler. authToken is
// compared against the Authorization header with constant-time
// equality; a mismatch closes the just-upgraded connection with policy
// violation (1008) rather than rejecting the HTTP request, so the
// client observes the failure as a WebSocket close, not an HTTP error.
func Handler(authToken string, sessionCfg func(clientID string) Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{client_id}", func(w http.ResponseWriter, r *http.Request) {
		clientID := r.PathValue("client_id")
		l := logger.With("client_id", clientID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Error("session: websocket upgrade failed", "error", err)
			return
		}
		conn.SetReadLimit(maxFrameSize)

		if !authorized(r, authToken) {
			l.Warn("session: auth mismatch, closing")
			closeWithCode(conn, websocket.ClosePolicyViolation, "invalid authorization")
			return
		}

		cfg := sessionCfg(clientID)
		cfg.ClientID = clientID
		cfg.Logger = logger

		sess, err := New(conn, cfg)
		if err != nil {
			l.Error("session: construction failed", "error", err)
			closeWithCode(conn, websocket.CloseInternalServerErr, err.Error())
			return
		}

		defer func() {
			if r := recover(); r != nil {
				l.Error("session: unhandled panic", "panic", r)
				closeWithCode(conn, websocket.CloseInternalServerErr, "internal error")
			}
		}()

		sess.Run(r.Context())
	})
	return mux
}

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	want := fmt.Sprintf("Bearer %s", token)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(closeWriteDeadline)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = conn.Close()
}
