package room

import "errors"

var (
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrSessionNotFound   = errors.New("session not found")
)
