package coord

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mizuki/StudyRoom/internal/app"
	"github.com/mizuki/StudyRoom/internal/core"
	"github.com/mizuki/StudyRoom/internal/domain"
)

type fakeConn struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeConn) TrySend(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeConn) Close() {}

// wireEvent is a superset decode target for every outbound envelope.
type wireEvent struct {
	Type      string                `json:"type"`
	Stats     []domain.RoomStat     `json:"stats"`
	Sessions  []domain.StudySession `json:"sessions"`
	Session   *domain.StudySession  `json:"session"`
	SessionID domain.SessionID      `json:"sessionId"`
	Message   string                `json:"message"`
}

func (f *fakeConn) events(t *testing.T) []wireEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wireEvent, 0, len(f.sent))
	for _, raw := range f.sent {
		var ev wireEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, kind string) []wireEvent {
	t.Helper()
	var out []wireEvent
	for _, ev := range f.events(t) {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) lastStats(t *testing.T) []domain.RoomStat {
	t.Helper()
	stats := f.ofType(t, "room-stats")
	require.NotEmpty(t, stats)
	return stats[len(stats)-1].Stats
}

// fakeStore controls Get/ApplyUpdate and ListActive independently, so tests
// can model a store whose listing disagrees with what presence accumulated.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.StudySession
	active   []domain.StudySession
	failWith error
}

func newFakeStore(sessions ...domain.StudySession) *fakeStore {
	s := &fakeStore{sessions: make(map[domain.SessionID]domain.StudySession)}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return s
}

func (s *fakeStore) ListActive() ([]domain.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]domain.StudySession(nil), s.active...), nil
}

func (s *fakeStore) Get(id domain.SessionID) (domain.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return domain.StudySession{}, s.failWith
	}
	sess, ok := s.sessions[id]
	if !ok {
		return domain.StudySession{}, core.ErrSessionNotFound
	}
	return sess, nil
}

func (s *fakeStore) ApplyUpdate(id domain.SessionID, upd domain.SessionUpdate) (domain.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return domain.StudySession{}, s.failWith
	}
	sess, ok := s.sessions[id]
	if !ok {
		return domain.StudySession{}, core.ErrSessionNotFound
	}
	sess = upd.Apply(sess, time.Now())
	s.sessions[id] = sess
	return sess, nil
}

func activeSession(id domain.SessionID, nickname string, room domain.RoomName) domain.StudySession {
	return domain.StudySession{
		ID:       id,
		Nickname: nickname,
		Location: room,
		IsActive: true,
	}
}

func setup(sessions ...domain.StudySession) (*Coordinator, *fakeStore) {
	store := newFakeStore(sessions...)
	return New(app.NewBroadcaster(), store), store
}

func TestCoordinator_Connect_SendsSnapshot(t *testing.T) {
	req := require.New(t)

	// Given two active sessions in room A per the store
	c, store := setup()
	store.active = []domain.StudySession{
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", "A"),
	}

	// When a fresh connection arrives
	conn := &fakeConn{}
	c.Connect("conn-1", conn)

	// Then it receives the active-session list and a recomputed snapshot
	active := conn.ofType(t, "active-sessions")
	req.Len(active, 1)
	req.Len(active[0].Sessions, 2)
	req.Equal([]domain.RoomStat{{Room: "A", Count: 2}}, conn.lastStats(t))
}

func TestCoordinator_Connect_RecomputeOverridesDrift(t *testing.T) {
	req := require.New(t)
	c, store := setup(
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", "A"),
		activeSession(3, "carol", "A"),
		activeSession(4, "dave", "A"),
		activeSession(5, "erin", "A"),
	)

	// Given a ledger driven to 5 while the store only lists 2 active sessions
	for i, id := range []core.ConnID{"c1", "c2", "c3", "c4", "c5"} {
		c.Join(id, domain.SessionID(i+1))
	}
	store.mu.Lock()
	store.active = []domain.StudySession{
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", "A"),
	}
	store.mu.Unlock()
	req.Equal([]domain.RoomStat{{Room: "A", Count: 5}}, c.Stats())

	// When a new connection arrives
	conn := &fakeConn{}
	c.Connect("c6", conn)

	// Then its snapshot reflects the store's truth, not the drifted counter
	req.Equal([]domain.RoomStat{{Room: "A", Count: 2}}, conn.lastStats(t))
}

func TestCoordinator_Connect_StoreDown_ReportsToOriginatorOnly(t *testing.T) {
	req := require.New(t)
	c, store := setup()
	other := &fakeConn{}
	c.Connect("other", other)
	store.failWith = core.ErrStoreUnavailable

	conn := &fakeConn{}
	c.Connect("conn-1", conn)

	errs := conn.ofType(t, "error")
	req.Len(errs, 1)
	req.Equal("session store unavailable", errs[0].Message)
	req.Empty(other.ofType(t, "error"))
}

func TestCoordinator_Join_BroadcastsAndCounts(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "library"))
	joiner, observer := &fakeConn{}, &fakeConn{}
	c.Connect("joiner", joiner)
	c.Connect("observer", observer)

	// When the session joins
	c.Join("joiner", 1)

	// Then others hear user-joined, the originator does not echo itself
	joined := observer.ofType(t, "user-joined")
	req.Len(joined, 1)
	req.Equal("alice", joined[0].Session.Nickname)
	req.Empty(joiner.ofType(t, "user-joined"))

	// And everyone, originator included, gets the same occupancy snapshot
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, joiner.lastStats(t))
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, observer.lastStats(t))
}

func TestCoordinator_Join_UnknownSession_NoMutation(t *testing.T) {
	req := require.New(t)
	c, _ := setup()
	joiner, observer := &fakeConn{}, &fakeConn{}
	c.Connect("joiner", joiner)
	c.Connect("observer", observer)
	statsBefore := len(observer.ofType(t, "room-stats"))

	c.Join("joiner", 42)

	errs := joiner.ofType(t, "error")
	req.Len(errs, 1)
	req.Equal("session not found", errs[0].Message)
	req.Empty(c.Stats())
	// No broadcast reached anyone else.
	req.Len(observer.ofType(t, "room-stats"), statsBefore)
	req.Empty(observer.ofType(t, "user-joined"))
}

func TestCoordinator_Join_Twice_KeepsFirstBinding(t *testing.T) {
	req := require.New(t)
	c, _ := setup(
		activeSession(1, "alice", "library"),
		activeSession(2, "alice-again", "other"),
	)
	conn := &fakeConn{}
	c.Connect("conn-1", conn)
	c.Join("conn-1", 1)

	// When the same connection tries to join again
	c.Join("conn-1", 2)

	// Then state is untouched and only the originator hears about it
	errs := conn.ofType(t, "error")
	req.Len(errs, 1)
	req.Equal("already joined", errs[0].Message)
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, c.Stats())
}

func TestCoordinator_Move_LibraryToOther(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "library"))
	mover, observer := &fakeConn{}, &fakeConn{}
	c.Connect("mover", mover)
	c.Connect("observer", observer)
	c.Join("mover", 1)

	// When the participant moves rooms
	room := domain.RoomName("other")
	c.Update("mover", 1, domain.SessionUpdate{Location: &room})

	// Then the counts swap atomically
	req.Equal([]domain.RoomStat{{Room: "other", Count: 1}}, observer.lastStats(t))

	// And no snapshot ever showed the participant in both rooms
	for _, ev := range observer.ofType(t, "room-stats") {
		total := 0
		for _, st := range ev.Stats {
			total += st.Count
		}
		req.LessOrEqual(total, 1)
	}

	// connect snapshot + join + move: the move itself produced exactly one.
	req.Len(observer.ofType(t, "room-stats"), 3)
	updated := observer.ofType(t, "session-updated")
	req.Len(updated, 1)
	req.Equal(room, updated[0].Session.Location)
	req.Empty(mover.ofType(t, "session-updated"))
}

func TestCoordinator_Update_WithoutRoomChange_KeepsCounts(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "library"))
	conn, observer := &fakeConn{}, &fakeConn{}
	c.Connect("conn-1", conn)
	c.Connect("observer", observer)
	c.Join("conn-1", 1)

	// When only the subject changes
	subject := "math"
	c.Update("conn-1", 1, domain.SessionUpdate{Subject: &subject})

	// Then occupancy is unchanged but the update is still broadcast
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, c.Stats())
	updated := observer.ofType(t, "session-updated")
	req.Len(updated, 1)
	req.Equal("math", updated[0].Session.Subject)
}

func TestCoordinator_Update_EmptyRoom_DoesNotVacate(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "library"))
	conn := &fakeConn{}
	c.Connect("conn-1", conn)
	c.Join("conn-1", 1)

	// When the update carries an empty room value
	room := domain.RoomName("")
	c.Update("conn-1", 1, domain.SessionUpdate{Location: &room})

	// Then the participant stays counted in the old room
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, c.Stats())
}

func TestCoordinator_Update_BeforeJoin_Rejected(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "library"))
	conn := &fakeConn{}
	c.Connect("conn-1", conn)

	room := domain.RoomName("other")
	c.Update("conn-1", 1, domain.SessionUpdate{Location: &room})

	errs := conn.ofType(t, "error")
	req.Len(errs, 1)
	req.Equal("not joined", errs[0].Message)
	req.Empty(c.Stats())
}

func TestCoordinator_Update_StoreFailure_AbortsBeforeMutation(t *testing.T) {
	req := require.New(t)
	c, store := setup(activeSession(1, "alice", "library"))
	conn := &fakeConn{}
	c.Connect("conn-1", conn)
	c.Join("conn-1", 1)
	store.failWith = core.ErrStoreUnavailable

	room := domain.RoomName("other")
	c.Update("conn-1", 1, domain.SessionUpdate{Location: &room})

	// All-or-nothing: the ledger still shows the old room.
	req.Equal([]domain.RoomStat{{Room: "library", Count: 1}}, c.Stats())
	errs := conn.ofType(t, "error")
	req.Len(errs, 1)
	req.Equal("session store unavailable", errs[0].Message)
}

func TestCoordinator_ThreeJoins_ThenLeaves(t *testing.T) {
	req := require.New(t)
	c, _ := setup(
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", "A"),
		activeSession(3, "carol", "B"),
	)
	for _, id := range []core.ConnID{"c1", "c2", "c3"} {
		c.Connect(id, &fakeConn{})
	}
	observer := &fakeConn{}
	c.Connect("observer", observer)

	// Given three connections joined in rooms {A, A, B}
	c.Join("c1", 1)
	c.Join("c2", 2)
	c.Join("c3", 3)
	req.Equal([]domain.RoomStat{{Room: "A", Count: 2}, {Room: "B", Count: 1}}, observer.lastStats(t))

	// When connection 1 disconnects
	c.Disconnect("c1")
	req.Equal([]domain.RoomStat{{Room: "A", Count: 1}, {Room: "B", Count: 1}}, observer.lastStats(t))
	left := observer.ofType(t, "user-left")
	req.Len(left, 1)
	req.Equal(domain.SessionID(1), left[0].SessionID)

	// And connection 3 leaves
	c.Leave("c3")

	// Then B's key is absent, not zero
	req.Equal([]domain.RoomStat{{Room: "A", Count: 1}}, observer.lastStats(t))
}

func TestCoordinator_DuplicateDisconnect_IsSilent(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "A"))
	conn, observer := &fakeConn{}, &fakeConn{}
	c.Connect("conn-1", conn)
	c.Connect("observer", observer)
	c.Join("conn-1", 1)
	c.Disconnect("conn-1")

	statsBefore := len(observer.ofType(t, "room-stats"))
	leftBefore := len(observer.ofType(t, "user-left"))

	// When the disconnect is delivered again
	c.Disconnect("conn-1")
	c.Leave("conn-1")

	// Then nothing changes and nothing is broadcast
	req.Empty(c.Stats())
	req.Len(observer.ofType(t, "room-stats"), statsBefore)
	req.Len(observer.ofType(t, "user-left"), leftBefore)
}

func TestCoordinator_ConcurrentLeaves_BothApplied(t *testing.T) {
	req := require.New(t)
	c, _ := setup(
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", "A"),
	)
	c.Connect("c1", &fakeConn{})
	c.Connect("c2", &fakeConn{})
	c.Join("c1", 1)
	c.Join("c2", 2)

	// When both occupants of room A leave at the same time
	var wg sync.WaitGroup
	for _, id := range []core.ConnID{"c1", "c2"} {
		wg.Add(1)
		go func(id core.ConnID) {
			defer wg.Done()
			c.Leave(id)
		}(id)
	}
	wg.Wait()

	// Then both departures are reflected, not just one
	req.Empty(c.Stats())
}

func TestCoordinator_LedgerMatchesRegistry(t *testing.T) {
	req := require.New(t)
	c, _ := setup(
		activeSession(1, "alice", "A"),
		activeSession(2, "bob", ""),
		activeSession(3, "carol", "B"),
	)
	for _, id := range []core.ConnID{"c1", "c2", "c3"} {
		c.Connect(id, &fakeConn{})
	}
	c.Join("c1", 1)
	c.Join("c2", 2) // no room: registered but not counted
	c.Join("c3", 3)
	room := domain.RoomName("A")
	c.Update("c3", 3, domain.SessionUpdate{Location: &room})
	c.Leave("c1")

	// sum(ledger counts) must equal the number of roomed bindings: only c3.
	total := 0
	for _, st := range c.Stats() {
		total += st.Count
	}
	req.Equal(1, total)
	req.Equal([]domain.RoomStat{{Room: "A", Count: 1}}, c.Stats())
}

func TestCoordinator_ErrorsAreConnectionLocal(t *testing.T) {
	req := require.New(t)
	c, _ := setup(activeSession(1, "alice", "A"))
	good, bad := &fakeConn{}, &fakeConn{}
	c.Connect("good", good)
	c.Connect("bad", bad)
	c.Join("good", 1)

	// When one connection misbehaves repeatedly
	c.Join("bad", 99)
	room := domain.RoomName("B")
	c.Update("bad", 99, domain.SessionUpdate{Location: &room})

	// Then the healthy connection's view is untouched
	req.Equal([]domain.RoomStat{{Room: "A", Count: 1}}, c.Stats())
	req.Empty(good.ofType(t, "error"))
	req.Len(bad.ofType(t, "error"), 2)
}
