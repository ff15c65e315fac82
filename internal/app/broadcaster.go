package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/core"
)

// Broadcaster fans notifications out to live connections without exposing
// transport details to the coordinator. Delivery is best-effort and
// fire-and-forget: a full send buffer drops the event for that recipient.
// Events from one origin to one recipient keep submission order because each
// PushConn is backed by a FIFO channel.
//
// The broadcaster guards only its own connection set. Presence state lives
// behind the coordinator's lock; by the time a notify method runs, that lock
// has been released.
type Broadcaster struct {
	mu    sync.RWMutex
	conns map[core.ConnID]core.PushConn
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[core.ConnID]core.PushConn)}
}

func (b *Broadcaster) Register(id core.ConnID, conn core.PushConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[id] = conn
	log.Info().Str("module", "app.broadcaster").Str("conn", string(id)).Msg("registered connection")
}

func (b *Broadcaster) Unregister(id core.ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, id)
	log.Info().Str("module", "app.broadcaster").Str("conn", string(id)).Msg("unregistered connection")
}

func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// NotifyOne delivers only to the given connection. Used for the initial
// snapshot on connect and for error signaling to an originator.
func (b *Broadcaster) NotifyOne(id core.ConnID, v any) {
	data, err := marshalEvent(v)
	if err != nil {
		return
	}
	b.mu.RLock()
	conn, ok := b.conns[id]
	b.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "app.broadcaster").Str("conn", string(id)).Msg("dropped event")
	}
}

// NotifyOthers delivers to every connection except the originator, so a
// client never echoes its own join/leave/update back to itself.
func (b *Broadcaster) NotifyOthers(origin core.ConnID, v any) {
	data, err := marshalEvent(v)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, conn := range b.conns {
		if id == origin {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.broadcaster").Str("conn", string(id)).Msg("dropped event")
		}
	}
}

// NotifyAll delivers to every connection including the originator. Occupancy
// snapshots go this way since every participant's counts must match exactly.
func (b *Broadcaster) NotifyAll(v any) {
	data, err := marshalEvent(v)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, conn := range b.conns {
		if err := conn.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.broadcaster").Str("conn", string(id)).Msg("dropped event")
		}
	}
}

// marshalEvent encodes the envelope once per event, not per recipient.
func marshalEvent(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcaster").Msg("marshal event")
		return nil, err
	}
	return data, nil
}
