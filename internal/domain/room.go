package domain

// RoomName identifies a study location ("library", "building1_1f", ...).
// Empty means the participant did not pick a room.
type RoomName string

const MaxRoomNameLen = 100

// RoomStat is one entry of a full occupancy snapshot.
// Consumers replace their whole view with the received slice.
type RoomStat struct {
	Room  RoomName `json:"location"`
	Count int      `json:"count"`
}
