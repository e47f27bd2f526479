package errors

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrTaskConflict      = errors.New("task is no longer available")
	ErrNotAssignee       = errors.New("task is assigned to another user")
	ErrInvalidTransition = errors.New("task status cannot move backwards")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrAccountExists     = errors.New("account with this email already exists")
	ErrAccountInactive   = errors.New("account is not active")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)
