package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/scene"
	"github.com/loreboard/loreboard/pkg/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream message types.
const (
	MessageSnapshot = "snapshot"
	MessageChange   = "change"
)

// StreamMessage is sent to websocket subscribers. The first message of a
// stream is a snapshot; every later message describes one board change
// together with the current positions of the entities it touched.
type StreamMessage struct {
	Type      string                    `json:"type"`
	Version   uint64                    `json:"version"`
	Change    *board.Change             `json:"change,omitempty"`
	Positions map[string]geometry.Point `json:"positions,omitempty"`
	Scene     *scene.Scene              `json:"scene,omitempty"`
}

// handleWS streams board changes. Clients may send pointer events in the
// same shape as POST /boards/{id}/pointer.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "id", sess.ID, "err", err)
		return
	}

	changes := make(chan board.Change, sendBuffer)
	unsubscribe := sess.Board.Subscribe(func(c board.Change) {
		select {
		case changes <- c:
		default:
			s.logger.Debug("dropping change for slow subscriber", "id", sess.ID, "kind", c.Kind)
		}
	})

	closed := make(chan struct{})
	go s.readPump(conn, sess, closed)
	s.writePump(conn, sess, changes, closed)
	unsubscribe()
}

// readPump forwards client pointer events into the session feed until the
// connection fails. It closes closed on return.
func (s *Server) readPump(conn *websocket.Conn, sess *session.Session, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Warn("failed to set read deadline", "err", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req pointerRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "id", sess.ID, "err", err)
			}
			return
		}
		ev, err := req.event()
		if err != nil {
			s.logger.Debug("ignoring pointer message", "id", sess.ID, "err", err)
			continue
		}
		sess.Pointer.Emit(ev)
	}
}

// writePump sends the initial snapshot, then every change, with periodic
// pings. It returns when the connection fails or the session closes.
func (s *Server) writePump(conn *websocket.Conn, sess *session.Session, changes <-chan board.Change, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	snap := sess.Board.Snapshot()
	if !s.send(conn, StreamMessage{Type: MessageSnapshot, Version: sess.Board.Version(), Scene: &snap}) {
		return
	}

	for {
		select {
		case c := <-changes:
			msg := StreamMessage{
				Type:      MessageChange,
				Version:   sess.Board.Version(),
				Change:    &c,
				Positions: positionsOf(sess.Board, c.IDs),
			}
			if !s.send(conn, msg) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("ping failed", "id", sess.ID, "err", err)
				return
			}

		case <-sess.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "board closed"))
			return

		case <-closed:
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg StreamMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", "err", err)
		return false
	}
	return true
}

// positionsOf returns the current positions of ids that are still placed.
func positionsOf(b *board.Board, ids []string) map[string]geometry.Point {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]geometry.Point, len(ids))
	for _, id := range ids {
		if p, ok := b.Position(id); ok {
			out[id] = p
		}
	}
	return out
}
