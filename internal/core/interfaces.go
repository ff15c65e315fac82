package core

import (
	"errors"

	"github.com/mizuki/StudyRoom/internal/domain"
)

// ConnID identifies one live transport connection. Minted on connect,
// discarded on disconnect, never persisted.
type ConnID string

// PushConn abstracts a client's outbound channel.
// Owned by the adapter; the adapter must Close() it.
type PushConn interface {
	TrySend([]byte) error
	Close()
}

// Registry misuse. Self-healing: callers treat these as no-ops and never
// surface them to other connections.
var (
	ErrNotBound     = errors.New("connection not bound")
	ErrAlreadyBound = errors.New("connection already bound")
)

// Session store failures. Both abort the current transition before any
// presence state is touched.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// SessionStore is the external authority for session records.
// The presence core never persists anything itself.
type SessionStore interface {
	ListActive() ([]domain.StudySession, error)
	Get(id domain.SessionID) (domain.StudySession, error)
	ApplyUpdate(id domain.SessionID, upd domain.SessionUpdate) (domain.StudySession, error)
}
