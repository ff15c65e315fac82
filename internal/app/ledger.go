package app

import (
	"sort"

	"github.com/mizuki/StudyRoom/internal/domain"
)

// Ledger tracks how many participants currently sit in each room.
// A room key exists iff its count is > 0, so a snapshot never reports zeros.
//
// The ledger is not safe for concurrent use on its own: the coordinator owns
// it together with the registry under a single lock, so a room move can never
// interleave with another transition between its decrement and increment.
type Ledger struct {
	counts map[domain.RoomName]int
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[domain.RoomName]int)}
}

func (l *Ledger) Increment(room domain.RoomName) {
	if room == "" {
		return
	}
	l.counts[room]++
}

// Decrement is idempotent against duplicate leave events: an absent key or a
// count already at zero is a no-op, never an error.
func (l *Ledger) Decrement(room domain.RoomName) {
	n, ok := l.counts[room]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.counts, room)
		return
	}
	l.counts[room] = n - 1
}

func (l *Ledger) Count(room domain.RoomName) int {
	return l.counts[room]
}

func (l *Ledger) Total() int {
	total := 0
	for _, n := range l.counts {
		total += n
	}
	return total
}

// Snapshot returns the full occupancy picture. Consumers must treat it as a
// complete replacement of whatever they held before, not a delta.
func (l *Ledger) Snapshot() []domain.RoomStat {
	out := make([]domain.RoomStat, 0, len(l.counts))
	for room, n := range l.counts {
		out = append(out, domain.RoomStat{Room: room, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// Recompute drops all counts and rebuilds them from the given room
// assignments. Incremental counters drift when a disconnect is handled twice
// or a broadcast is missed; rebuilding from the store's truth bounds the
// blast radius of any single incremental bug.
func (l *Ledger) Recompute(rooms []domain.RoomName) {
	l.counts = make(map[domain.RoomName]int, len(rooms))
	for _, room := range rooms {
		if room == "" {
			continue
		}
		l.counts[room]++
	}
}
