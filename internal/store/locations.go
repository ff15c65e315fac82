package store

import (
	"time"

	"github.com/samber/lo"

	"github.com/mizuki/StudyRoom/internal/domain"
)

var defaultLocations = []domain.Location{
	{ID: 1, Name: "library", DisplayName: "図書館", IsActive: true},
	{ID: 2, Name: "building1_1f", DisplayName: "1号館1F", IsActive: true},
	{ID: 3, Name: "building1_2f", DisplayName: "1号館2F", IsActive: true},
	{ID: 4, Name: "other", DisplayName: "その他自習室", IsActive: true},
}

// Locations returns the selectable study places. The catalogue is static;
// deactivated entries are filtered out.
func Locations() []domain.Location {
	now := time.Now()
	return lo.FilterMap(defaultLocations, func(l domain.Location, _ int) (domain.Location, bool) {
		l.CreatedAt = now
		return l, l.IsActive
	})
}
