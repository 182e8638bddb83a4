package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures that cross the service/handler boundary.
type Kind string

const (
	InvalidDate           Kind = "invalid_date"
	InvalidTime           Kind = "invalid_time"
	InvalidDuration       Kind = "invalid_duration"
	OutsideWindow         Kind = "outside_window"
	InvalidConfiguration  Kind = "invalid_configuration"
	InvalidTransition     Kind = "invalid_transition"
	NotFound              Kind = "not_found"
	StorageFailure        Kind = "storage_failure"
	SlotNoLongerAvailable Kind = "slot_no_longer_available"
)

type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func WithDetails(kind Kind, message string, details map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func Storage(err error) *Error {
	return Wrap(StorageFailure, "storage unavailable", err)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return Is(err, StorageFailure)
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidDate, InvalidTime, InvalidDuration, OutsideWindow, InvalidConfiguration:
		return http.StatusBadRequest
	case InvalidTransition, SlotNoLongerAvailable:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case StorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
