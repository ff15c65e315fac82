package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/domain"
)

// FeedbackBox collects user feedback in memory. Nothing reads it back out
// except operators; it exists so the submit endpoint has somewhere to put
// things.
type FeedbackBox struct {
	mu      sync.Mutex
	entries []domain.Feedback
}

func NewFeedbackBox() *FeedbackBox {
	return &FeedbackBox{}
}

func (b *FeedbackBox) Add(category domain.FeedbackCategory, content string) (domain.Feedback, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fb, err := domain.NewFeedback(int64(len(b.entries)+1), category, content, time.Now())
	if err != nil {
		return domain.Feedback{}, err
	}
	b.entries = append(b.entries, fb)
	log.Info().Str("module", "store").Str("category", string(category)).Msg("feedback received")
	return fb, nil
}

func (b *FeedbackBox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
