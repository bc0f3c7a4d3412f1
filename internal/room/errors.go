package room

import "errors"

var (
	ErrRoomNotExist       = errors.New("room not exist")
	ErrMissingName        = errors.New("room name is empty")
	ErrNameTooLong        = errors.New("room name is too long")
	ErrInvalidMaxUsers    = errors.New("room max users out of range")
	ErrParentRoomNotExist = errors.New("parent room not exist")
	ErrAlreadyJoined      = errors.New("user already joined room")
	ErrAlreadyFull        = errors.New("room is full")
	ErrWrongPassword      = errors.New("wrong room password")
	ErrInvalidAdminID     = errors.New("invalid room admin id")
	ErrNotMember          = errors.New("user is not a room member")
	ErrPermissionDenied   = errors.New("user is not a room admin")
	ErrMissingIframeID    = errors.New("iframe id is empty")
)
