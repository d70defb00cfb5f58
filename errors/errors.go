package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthentication        = fmt.Errorf("authentication failed")
	ErrAuthorization         = fmt.Errorf("not a member of the group")
	ErrValidation            = fmt.Errorf("invalid payload")
	ErrStorage               = fmt.Errorf("storage failure")
	ErrUnknownGroup          = fmt.Errorf("unknown group")
	ErrNotEnoughParticipants = fmt.Errorf("not enough participants")
	ErrSlowConsumer          = fmt.Errorf("subscriber queue overflow")
	ErrConnectionClosed      = fmt.Errorf("connection closed")
	ErrShuttingDown          = fmt.Errorf("server shutting down")
	ErrWorkerPanic           = fmt.Errorf("worker panic")
	ErrEmptyWords            = fmt.Errorf("no words have been found")
)

// Wire codes carried by outbound error events.
const (
	CodeAuthentication = "authentication_error"
	CodeAuthorization  = "authorization_error"
	CodeValidation     = "validation_error"
	CodeStorage        = "storage_error"
)

func Is(err, target error) bool {
	return stdErrors.Is(err, target)
}

func As(err error, target any) bool {
	return stdErrors.As(err, target)
}

// Code maps an error to the code sent to the connection that triggered it.
// Anything outside the taxonomy is reported as a storage error.
func Code(err error) string {
	switch {
	case Is(err, ErrAuthentication):
		return CodeAuthentication
	case Is(err, ErrAuthorization), Is(err, ErrUnknownGroup):
		return CodeAuthorization
	case Is(err, ErrValidation), Is(err, ErrNotEnoughParticipants):
		return CodeValidation
	default:
		return CodeStorage
	}
}

// Message returns the text safe to show to a client for err.
func Message(err error) string {
	if Is(err, ErrShuttingDown) {
		return "server shutting down"
	}
	switch Code(err) {
	case CodeAuthentication:
		return "invalid or expired credential"
	case CodeAuthorization:
		return "you are not a member of this group"
	case CodeValidation:
		return err.Error()
	default:
		return "storage is unavailable, try again later"
	}
}

func HTTPStatus(err error) int {
	switch {
	case Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case Is(err, ErrUnknownGroup):
		return http.StatusNotFound
	case Is(err, ErrAuthorization):
		return http.StatusForbidden
	case Is(err, ErrValidation), Is(err, ErrNotEnoughParticipants):
		return http.StatusBadRequest
	case Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
