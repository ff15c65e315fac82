package coord

import "github.com/mizuki/StudyRoom/internal/domain"

// Outbound event envelopes. The Type field doubles as the wire event name.

type activeSessionsEvent struct {
	Type     string                `json:"type"`
	Sessions []domain.StudySession `json:"sessions"`
}

type roomStatsEvent struct {
	Type  string            `json:"type"`
	Stats []domain.RoomStat `json:"stats"`
}

type userJoinedEvent struct {
	Type    string              `json:"type"`
	Session domain.StudySession `json:"session"`
}

type userLeftEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
}

type sessionUpdatedEvent struct {
	Type    string              `json:"type"`
	Session domain.StudySession `json:"session"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	evActiveSessions = "active-sessions"
	evRoomStats      = "room-stats"
	evUserJoined     = "user-joined"
	evUserLeft       = "user-left"
	evSessionUpdated = "session-updated"
	evError          = "error"
)
