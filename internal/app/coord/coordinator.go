// Package coord drives the per-connection presence state machine:
// connect, join, move, leave, disconnect.
package coord

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mizuki/StudyRoom/internal/app"
	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

// Coordinator owns the ledger and the registry behind one mutex. Every
// transition mutates both as a unit, so two connections leaving the same room
// at once are both reflected and a mover is never counted in two rooms at the
// same time. No network I/O happens under the lock: each transition takes its
// snapshots while locked and fans out after release.
//
// Per-connection ordering comes from the transport: each connection's events
// arrive on a single reader goroutine, so a given handle never races itself.
type Coordinator struct {
	mu       sync.Mutex
	ledger   *app.Ledger
	registry *app.Registry

	casts *app.Broadcaster
	store core.SessionStore
}

func New(casts *app.Broadcaster, store core.SessionStore) *Coordinator {
	return &Coordinator{
		ledger:   app.NewLedger(),
		registry: app.NewRegistry(),
		casts:    casts,
		store:    store,
	}
}

// Connect registers the connection and sends it the full picture: every
// active session plus an occupancy snapshot rebuilt from the store's truth.
// The rebuild guards against drift accumulated while nobody was watching.
func (c *Coordinator) Connect(id core.ConnID, conn core.PushConn) {
	c.casts.Register(id, conn)

	sessions, err := c.store.ListActive()
	if err != nil {
		log.Error().Err(err).Str("module", "coord").Str("conn", string(id)).Msg("list active sessions")
		c.casts.NotifyOne(id, errorEvent{Type: evError, Message: storeErrorMessage(err)})
		return
	}

	c.mu.Lock()
	c.ledger.Recompute(lo.FilterMap(sessions, func(s domain.StudySession, _ int) (domain.RoomName, bool) {
		return s.Location, s.Location != ""
	}))
	stats := c.ledger.Snapshot()
	c.mu.Unlock()

	c.casts.NotifyOne(id, activeSessionsEvent{Type: evActiveSessions, Sessions: sessions})
	c.casts.NotifyOne(id, roomStatsEvent{Type: evRoomStats, Stats: stats})
	log.Info().Str("module", "coord").Str("conn", string(id)).Int("sessions", len(sessions)).Msg("connection ready")
}

// Join binds the connection to a session record looked up in the store.
// A store failure aborts before any ledger or registry mutation.
func (c *Coordinator) Join(id core.ConnID, sessionID domain.SessionID) {
	rec, err := c.store.Get(sessionID)
	if err != nil {
		log.Warn().Err(err).Str("module", "coord").Str("conn", string(id)).Int64("session", int64(sessionID)).Msg("join rejected")
		c.casts.NotifyOne(id, errorEvent{Type: evError, Message: storeErrorMessage(err)})
		return
	}

	c.mu.Lock()
	if err := c.registry.Bind(id, rec.ID, rec.Location); err != nil {
		c.mu.Unlock()
		// Duplicate join: state is untouched, only the originator hears of it.
		log.Warn().Err(err).Str("module", "coord").Str("conn", string(id)).Msg("join ignored")
		c.casts.NotifyOne(id, errorEvent{Type: evError, Message: "already joined"})
		return
	}
	c.ledger.Increment(rec.Location)
	stats := c.ledger.Snapshot()
	c.mu.Unlock()

	c.casts.NotifyOthers(id, userJoinedEvent{Type: evUserJoined, Session: rec})
	c.casts.NotifyAll(roomStatsEvent{Type: evRoomStats, Stats: stats})
	log.Info().Str("module", "coord").Str("conn", string(id)).Int64("session", int64(sessionID)).Str("room", string(rec.Location)).Msg("joined")
}

// Update applies field changes through the store and, when the room actually
// changed to a new non-empty value, moves the participant between rooms.
// The store write happens first: if it fails, presence state stays untouched.
func (c *Coordinator) Update(id core.ConnID, sessionID domain.SessionID, upd domain.SessionUpdate) {
	c.mu.Lock()
	bound, err := c.registry.Lookup(id)
	c.mu.Unlock()
	if err != nil {
		log.Warn().Str("module", "coord").Str("conn", string(id)).Msg("update before join ignored")
		c.casts.NotifyOne(id, errorEvent{Type: evError, Message: "not joined"})
		return
	}

	rec, err := c.store.ApplyUpdate(sessionID, upd)
	if err != nil {
		log.Warn().Err(err).Str("module", "coord").Str("conn", string(id)).Int64("session", int64(sessionID)).Msg("update rejected")
		c.casts.NotifyOne(id, errorEvent{Type: evError, Message: storeErrorMessage(err)})
		return
	}

	c.mu.Lock()
	moved := upd.Location != nil && *upd.Location != "" && *upd.Location != bound.Room
	if moved {
		// Decrement-old and increment-new happen under one lock hold, so no
		// observer ever sees the participant in both rooms or in neither.
		c.ledger.Decrement(bound.Room)
		c.ledger.Increment(*upd.Location)
		if err := c.registry.Rebind(id, *upd.Location); err != nil {
			log.Warn().Err(err).Str("module", "coord").Str("conn", string(id)).Msg("rebind after update")
		}
	}
	stats := c.ledger.Snapshot()
	c.mu.Unlock()

	c.casts.NotifyOthers(id, sessionUpdatedEvent{Type: evSessionUpdated, Session: rec})
	c.casts.NotifyAll(roomStatsEvent{Type: evRoomStats, Stats: stats})
	if moved {
		log.Info().Str("module", "coord").Str("conn", string(id)).Str("from", string(bound.Room)).Str("room", string(*upd.Location)).Msg("moved rooms")
	}
}

// Leave unwinds whatever the last join/move left behind. A handle that never
// joined, or already left, is a silent no-op so duplicate disconnect events
// cannot double-decrement a room.
func (c *Coordinator) Leave(id core.ConnID) {
	c.mu.Lock()
	bound, err := c.registry.Unbind(id)
	if err != nil {
		c.mu.Unlock()
		return
	}
	c.ledger.Decrement(bound.Room)
	stats := c.ledger.Snapshot()
	c.mu.Unlock()

	c.casts.NotifyOthers(id, userLeftEvent{Type: evUserLeft, SessionID: bound.SessionID})
	c.casts.NotifyAll(roomStatsEvent{Type: evRoomStats, Stats: stats})
	log.Info().Str("module", "coord").Str("conn", string(id)).Int64("session", int64(bound.SessionID)).Msg("left")
}

// Disconnect is leave plus removal of the outbound channel. Always safe to
// call, even for connections that never joined.
func (c *Coordinator) Disconnect(id core.ConnID) {
	c.Leave(id)
	c.casts.Unregister(id)
}

// Stats exposes a consistent occupancy snapshot, mainly for the HTTP surface.
func (c *Coordinator) Stats() []domain.RoomStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Snapshot()
}

func storeErrorMessage(err error) string {
	if errors.Is(err, core.ErrSessionNotFound) {
		return "session not found"
	}
	return "session store unavailable"
}
