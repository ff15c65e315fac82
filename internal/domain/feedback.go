package domain

import (
	"errors"
	"time"
)

type FeedbackCategory string

const (
	FeedbackLocation FeedbackCategory = "location"
	FeedbackBug      FeedbackCategory = "bug"
	FeedbackFeature  FeedbackCategory = "feature"
	FeedbackOther    FeedbackCategory = "other"
)

const MaxFeedbackLen = 1000

var (
	ErrFeedbackEmpty       = errors.New("feedback content empty")
	ErrFeedbackTooLong     = errors.New("feedback content too long")
	ErrFeedbackBadCategory = errors.New("unknown feedback category")
)

type Feedback struct {
	ID        int64            `json:"id"`
	Category  FeedbackCategory `json:"category"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewFeedback validates and builds a feedback entry.
func NewFeedback(id int64, category FeedbackCategory, content string, now time.Time) (Feedback, error) {
	switch category {
	case FeedbackLocation, FeedbackBug, FeedbackFeature, FeedbackOther:
	default:
		return Feedback{}, ErrFeedbackBadCategory
	}
	if len(content) == 0 {
		return Feedback{}, ErrFeedbackEmpty
	}
	if len(content) > MaxFeedbackLen {
		return Feedback{}, ErrFeedbackTooLong
	}
	return Feedback{ID: id, Category: category, Content: content, CreatedAt: now}, nil
}
