package session

import "errors"

var (
	// ErrTransportDropped means a frame could not be queued to its target.
	// It is logged and never surfaced to the sender.
	ErrTransportDropped = errors.New("transport dropped")
	ErrRoomFull         = errors.New("room is full")
	ErrNotInRoom        = errors.New("connection is not in a room")
)
