package errors

import "errors"

var (
	ErrUserNotFound     = errors.New("user with provided id was not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrSessionNotFound  = errors.New("session was not found")
	ErrUserExists       = errors.New("user already exists")
	ErrMatchNotFound    = errors.New("match not found")
	ErrProblemNotFound  = errors.New("problem not found")
	ErrPermissionDenied = errors.New("permission denied: no access to update this document")
	ErrBadTransition    = errors.New("match status transition is not allowed")
	ErrNotAParticipant  = errors.New("user is not a participant of this match")
	ErrImageTooLarge    = errors.New("image size should be less than 5MB")
	ErrNotAnImage       = errors.New("please upload an image file")
	ErrInternal         = errors.New("internal error")
)
