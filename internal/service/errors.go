package service

import "net/http"

// Error is a request-level failure with a caller-facing message and an
// HTTP-equivalent status. Handlers switch on it; anything else is a
// 500 with the underlying message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func newConflictError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// newAuthError covers bad credentials and bad/expired one-time codes.
// The message is deliberately generic where distinguishing failure
// modes would help an attacker.
func newAuthError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func newUnauthorizedError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func newNotFoundError(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}
