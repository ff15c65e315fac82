// Package store is the in-memory authority for study session records.
// The presence core consumes it through core.SessionStore and never writes
// session data on its own.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

// Ended sessions are kept around for a day before they are dropped.
const endedRetention = 24 * time.Hour

type Memory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.StudySession
	timers   map[domain.SessionID]*time.Timer
	nextID   domain.SessionID
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[domain.SessionID]domain.StudySession),
		timers:   make(map[domain.SessionID]*time.Timer),
		nextID:   1,
	}
}

// Create validates and stores a new active session and arms its expiry
// timer: when the scheduled end passes and the session is still active, it
// is ended automatically.
func (m *Memory) Create(nickname string, location domain.RoomName, subject string, end time.Time, showDuration bool) (domain.StudySession, error) {
	now := time.Now()

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	sess, err := domain.NewSession(id, nickname, location, subject, end, showDuration, now)
	if err != nil {
		m.nextID--
		m.mu.Unlock()
		return domain.StudySession{}, err
	}
	m.sessions[id] = sess
	m.timers[id] = time.AfterFunc(time.Until(end), func() { m.expire(id) })
	m.mu.Unlock()

	log.Info().Str("module", "store").Int64("session", int64(id)).Str("nickname", nickname).Str("room", string(location)).Msg("session created")
	return sess, nil
}

func (m *Memory) ListActive() ([]domain.StudySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := lo.Filter(lo.Values(m.sessions), func(s domain.StudySession, _ int) bool {
		return s.IsActive
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns an active session. Ended or unknown sessions both answer
// ErrSessionNotFound: a session that is over no longer exists as far as
// presence is concerned.
func (m *Memory) Get(id domain.SessionID) (domain.StudySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok || !sess.IsActive {
		return domain.StudySession{}, core.ErrSessionNotFound
	}
	return sess, nil
}

// ApplyUpdate merges the given fields into the stored record. A changed
// scheduled end re-arms the expiry timer.
func (m *Memory) ApplyUpdate(id domain.SessionID, upd domain.SessionUpdate) (domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || !sess.IsActive {
		return domain.StudySession{}, core.ErrSessionNotFound
	}
	sess = upd.Apply(sess, time.Now())
	m.sessions[id] = sess
	if upd.ScheduledEndTime != nil {
		if t, ok := m.timers[id]; ok {
			t.Stop()
		}
		m.timers[id] = time.AfterFunc(time.Until(sess.ScheduledEndTime), func() { m.expire(id) })
	}
	return sess, nil
}

// End marks the session inactive, records the actual end time, and schedules
// the record's removal after the retention window.
func (m *Memory) End(id domain.SessionID) (domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked(id)
}

func (m *Memory) endLocked(id domain.SessionID) (domain.StudySession, error) {
	sess, ok := m.sessions[id]
	if !ok || !sess.IsActive {
		return domain.StudySession{}, core.ErrSessionNotFound
	}
	now := time.Now()
	sess.IsActive = false
	sess.ActualEndTime = &now
	sess.UpdatedAt = now
	m.sessions[id] = sess

	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = time.AfterFunc(endedRetention, func() { m.drop(id) })

	log.Info().Str("module", "store").Int64("session", int64(id)).Msg("session ended")
	return sess, nil
}

func (m *Memory) expire(id domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.endLocked(id); err == nil {
		log.Info().Str("module", "store").Int64("session", int64(id)).Msg("session auto-expired")
	}
}

func (m *Memory) drop(id domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.timers, id)
}

// Close stops every outstanding timer. Records are left as-is; the process
// is going away anyway.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timers {
		t.Stop()
	}
}
