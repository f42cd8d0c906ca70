// Package transport adapts the signaling hub to a real network transport.
// It implements hub.Session on top of gorilla/websocket and runs the
// per-connection receive loop (§4.F of the signaling design): parse the
// user_id path parameter, register with the hub, and relay frames to the
// router until the peer disconnects.
package transport

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/snarg/signalhub/internal/hub"
)

// CloseInvalidUserID is the application-level close code for a non-integer
// user_id path parameter.
const CloseInvalidUserID = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Every origin is accepted. The CORS middleware in front of
		// this handler only sets response headers; it does not reject
		// a GET from a disallowed origin, so no origin check applies
		// to the upgrade.
		return true
	},
}

// wsSession implements hub.Session over one gorilla/websocket connection.
// Writes are serialized with a mutex: gorilla/websocket forbids concurrent
// writers on the same connection, and both the receive loop's error path
// and a concurrent broadcast from another session can race to send here.
type wsSession struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (s *wsSession) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *wsSession) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	deadline := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, deadline, deadlineNow())
	return s.conn.Close()
}

// ServeWS upgrades r to a WebSocket and runs the session loop for the
// user_id carried in the URL path (via userIDParam, typically populated
// by the router using chi.URLParam upstream). Non-integer user_id closes
// immediately with CloseInvalidUserID and never touches the registry.
func ServeWS(h *hub.Hub, log zerolog.Logger, w http.ResponseWriter, r *http.Request, userIDParam string) {
	userID, err := strconv.ParseInt(userIDParam, 10, 64)
	if err != nil {
		conn, upErr := upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			log.Debug().Err(upErr).Msg("upgrade failed before invalid user_id could be reported")
			return
		}
		msg := websocket.FormatCloseMessage(CloseInvalidUserID, "user_id must be an integer")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadlineNow())
		_ = conn.Close()
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	session := &wsSession{conn: conn}
	connLog := log.With().Int64("user_id", userID).Str("conn_id", uuid.NewString()).Logger()

	h.Connect(r.Context(), userID, session)
	connLog.Info().Msg("session connected")

	runReceiveLoop(h, connLog, userID, session, conn)
}

// runReceiveLoop reads frames until the peer disconnects or a read error
// occurs, dispatching each to the router. The distinction between a clean
// close and any other read error determines whether the resulting
// user_left envelope carries an "error" field (the supplemented
// disconnect-path exception behavior).
func runReceiveLoop(h *hub.Hub, log zerolog.Logger, userID int64, session *wsSession, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var cause error
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				cause = err
			}
			log.Info().Err(err).Msg("session disconnected")
			h.Disconnect(userID, session, cause)
			_ = session.Close(websocket.CloseNormalClosure, "")
			return
		}
		h.Router.Dispatch(context.Background(), userID, raw)
	}
}
