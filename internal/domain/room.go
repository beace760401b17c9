package domain

import "errors"

const (
	MaxRoomNameLen = 36
	DefaultRoom    = RoomName("main")
)

var ErrRoomNameTooLong = errors.New("room name too long")

type RoomName string

type Room struct {
	Name RoomName
}

// NewRoomName falls back to DefaultRoom for an empty name.
func NewRoomName(raw string) (RoomName, error) {
	if raw == "" {
		return DefaultRoom, nil
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}
