package domain

import "errors"

// Typed failures returned by ChatService operations. They never carry
// side effects: an operation that fails leaves the model untouched.
var (
	ErrUsernameTaken           = errors.New("username already taken")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAlreadyLoggedIn         = errors.New("already logged in from another session")
	ErrUserNotFound            = errors.New("user not found")
	ErrRoomNotFound            = errors.New("room not found")
	ErrRoomAlreadyExists       = errors.New("room already exists")
	ErrNotOwner                = errors.New("only the owner can delete a room")
	ErrCannotDeleteDefaultRoom = errors.New("cannot delete a default room")
	ErrSelfDirectMessage       = errors.New("cannot send a direct message to yourself")
)
