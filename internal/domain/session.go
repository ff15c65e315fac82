// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const (
	MaxNicknameLen = 50
	MaxSubjectLen  = 100

	// MaxSessionDuration caps how far out a scheduled end may be.
	MaxSessionDuration = 12 * time.Hour
)

var (
	ErrNicknameEmpty   = errors.New("nickname empty")
	ErrNicknameTooLong = errors.New("nickname too long")
	ErrSessionTooLong  = errors.New("session exceeds max duration")
)

type SessionID int64

// StudySession is the durable description of one participant's session.
// Owned by the session store; everything else holds read-only copies.
type StudySession struct {
	ID               SessionID  `json:"id"`
	Nickname         string     `json:"nickname"`
	Location         RoomName   `json:"location,omitempty"`
	Subject          string     `json:"subject,omitempty"`
	ScheduledEndTime time.Time  `json:"scheduledEndTime"`
	ActualEndTime    *time.Time `json:"actualEndTime,omitempty"`
	IsActive         bool       `json:"isActive"`
	ShowDuration     bool       `json:"showDuration"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// SessionUpdate carries the mutable fields of a session.
// Nil means "leave unchanged".
type SessionUpdate struct {
	Location         *RoomName  `json:"location,omitempty"`
	Subject          *string    `json:"subject,omitempty"`
	ScheduledEndTime *time.Time `json:"scheduledEndTime,omitempty"`
	ShowDuration     *bool      `json:"showDuration,omitempty"`
}

// Apply merges the update into s and returns the merged copy.
func (u SessionUpdate) Apply(s StudySession, now time.Time) StudySession {
	if u.Location != nil {
		s.Location = *u.Location
	}
	if u.Subject != nil {
		s.Subject = *u.Subject
	}
	if u.ScheduledEndTime != nil {
		s.ScheduledEndTime = *u.ScheduledEndTime
	}
	if u.ShowDuration != nil {
		s.ShowDuration = *u.ShowDuration
	}
	s.UpdatedAt = now
	return s
}

// NewSession is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewSession(id SessionID, nickname string, location RoomName, subject string, end time.Time, showDuration bool, now time.Time) (StudySession, error) {
	if len(nickname) == 0 {
		return StudySession{}, ErrNicknameEmpty
	}
	if len(nickname) > MaxNicknameLen {
		return StudySession{}, ErrNicknameTooLong
	}
	if end.Sub(now) > MaxSessionDuration {
		return StudySession{}, ErrSessionTooLong
	}
	return StudySession{
		ID:               id,
		Nickname:         nickname,
		Location:         location,
		Subject:          subject,
		ScheduledEndTime: end,
		IsActive:         true,
		ShowDuration:     showDuration,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
