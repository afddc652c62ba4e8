package store

import "errors"

var (
	ErrConflict      = errors.New("slot unavailable")
	ErrNotFound      = errors.New("not found")
	ErrNotOwner      = errors.New("not the booking owner")
	ErrMatchFull     = errors.New("open match is full")
	ErrAlreadyJoined = errors.New("already joined")
)
