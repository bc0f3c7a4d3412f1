package identity

import "errors"

var (
	ErrMissingDisplayName  = errors.New("display name is empty")
	ErrDisplayNameTooShort = errors.New("display name is too short")
	ErrDisplayNameTooLong  = errors.New("display name is too long")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExist    = errors.New("user already exist")
	ErrWrongSecret         = errors.New("wrong secret")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidToken        = errors.New("invalid token")
)
