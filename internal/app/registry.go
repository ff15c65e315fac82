package app

import (
	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

// Binding is what a live connection currently owns: the session it speaks
// for and the room that session occupies (empty if none).
type Binding struct {
	SessionID domain.SessionID
	Room      domain.RoomName
}

// Registry maps connection handles to their bindings. An entry exists only
// between a completed join and the matching leave/disconnect, and is removed
// exactly once.
//
// Like the Ledger, the registry carries no lock of its own; the coordinator
// serializes all access.
type Registry struct {
	bindings map[core.ConnID]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[core.ConnID]Binding)}
}

// Bind registers the handle. Joins are not idempotent: a second bind for the
// same handle fails with ErrAlreadyBound and changes nothing.
func (r *Registry) Bind(id core.ConnID, sessionID domain.SessionID, room domain.RoomName) error {
	if _, ok := r.bindings[id]; ok {
		return core.ErrAlreadyBound
	}
	r.bindings[id] = Binding{SessionID: sessionID, Room: room}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Int64("session", int64(sessionID)).Str("room", string(room)).Msg("bound connection")
	return nil
}

// Rebind updates only the room of an existing binding.
func (r *Registry) Rebind(id core.ConnID, room domain.RoomName) error {
	b, ok := r.bindings[id]
	if !ok {
		return core.ErrNotBound
	}
	b.Room = room
	r.bindings[id] = b
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Msg("rebound connection")
	return nil
}

// Unbind removes the entry and returns the prior binding so the caller knows
// which room to decrement.
func (r *Registry) Unbind(id core.ConnID) (Binding, error) {
	b, ok := r.bindings[id]
	if !ok {
		return Binding{}, core.ErrNotBound
	}
	delete(r.bindings, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound connection")
	return b, nil
}

func (r *Registry) Lookup(id core.ConnID) (Binding, error) {
	b, ok := r.bindings[id]
	if !ok {
		return Binding{}, core.ErrNotBound
	}
	return b, nil
}

func (r *Registry) Len() int {
	return len(r.bindings)
}

// Occupied reports how many bindings currently name a room. The ledger's
// total must equal this at all times.
func (r *Registry) Occupied() int {
	n := 0
	for _, b := range r.bindings {
		if b.Room != "" {
			n++
		}
	}
	return n
}
