package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStatus     = errors.New("unknown appointment status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusArchived   Status = "archived"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusArchived},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusArchived},
	StatusCancelled:  {StatusArchived},
	StatusArchived:   nil,
}

// legacyStatuses maps vocabularies found in older records onto the canonical enum.
var legacyStatuses = map[string]Status{
	"scheduled": StatusConfirmed,
	"booked":    StatusConfirmed,
	"canceled":  StatusCancelled,
}

func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusInProgress}
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// MigrateStatus resolves canonical and legacy spellings alike.
func MigrateStatus(s string) (Status, bool) {
	if st, err := ParseStatus(s); err == nil {
		return st, true
	}
	st, ok := legacyStatuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

func LegacyStatusMapping() map[string]Status {
	out := make(map[string]Status, len(legacyStatuses))
	for k, v := range legacyStatuses {
		out[k] = v
	}
	return out
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Active reports whether an appointment in this state occupies its time window.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func Transition(from, to Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
