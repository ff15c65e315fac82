// Package ws is the websocket transport for the presence core. It owns the
// connection lifecycle and payload decoding; every state decision is the
// coordinator's.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/app/coord"
	"github.com/mizuki/StudyRoom/internal/config"
	"github.com/mizuki/StudyRoom/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type PresenceController struct {
	Coord *coord.Coordinator
	Cfg   *config.Config
}

func NewPresenceController(c *coord.Coordinator, cfg *config.Config) *PresenceController {
	return &PresenceController{Coord: c, Cfg: cfg}
}

// wsConn adapts a websocket to core.PushConn. Sends are non-blocking; a full
// buffer means the reader is too slow and the event is dropped for it.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandlePresence upgrades the request and hands the fresh connection to the
// coordinator, which replies with the active-session list and an occupancy
// snapshot.
func (ctl *PresenceController) HandlePresence(ctx context.Context, c *gin.Context) {
	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "ws").Str("conn", string(id)).Msg("new presence connection")

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}
	sock.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &wsConn{
		conn: sock,
		send: make(chan []byte, 32),
	}

	ctl.Coord.Connect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
