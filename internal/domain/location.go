package domain

import "time"

// Location is a selectable study place shown on the map.
type Location struct {
	ID          int64     `json:"id"`
	Name        RoomName  `json:"name"`
	DisplayName string    `json:"displayName"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}
