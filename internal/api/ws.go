package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/nav"
	"gallery3d/internal/sim"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inputMessage is what a websocket client sends to drive the camera.
type inputMessage struct {
	Type     string       `json:"type"`
	Key      string       `json:"key,omitempty"`
	Down     bool         `json:"down,omitempty"`
	ItemID   string       `json:"itemId,omitempty"`
	Position *vector.Vec3 `json:"position,omitempty"`
}

func (m inputMessage) command() (sim.Command, bool) {
	now := time.Now()
	switch m.Type {
	case "key":
		k, err := nav.ParseKey(m.Key)
		if err != nil {
			return nil, false
		}
		return sim.KeyCommand{At: now, Key: k, Down: m.Down}, true
	case "select":
		if m.ItemID == "" && m.Position == nil {
			return nil, false
		}
		return sim.SelectCommand{At: now, ItemID: m.ItemID, Position: m.Position}, true
	case "dismiss":
		return sim.DismissCommand{At: now}, true
	case "reset":
		return sim.ResetCommand{At: now}, true
	}
	return nil, false
}

// streamWS pushes every camera state to the client and accepts input
// messages on the same connection.
func (s *Server) streamWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	go s.readInput(conn, cancel)

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) readInput(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		var msg inputMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		cmd, ok := msg.command()
		if !ok {
			s.logger.Debug("ignoring websocket message", zap.String("type", msg.Type))
			continue
		}
		s.eng.Submit(cmd)
	}
}
