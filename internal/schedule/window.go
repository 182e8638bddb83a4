package schedule

import (
	"fmt"
	"time"
)

const DefaultHorizonMonths = 3

const (
	RejectInvalidDate   = "invalid_date"
	RejectInvalidTime   = "invalid_time"
	RejectPastDate      = "past_date"
	RejectBeyondHorizon = "beyond_horizon"
	RejectPastTime      = "past_time"
)

type Rejection struct {
	Code   string
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(code, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Window is the booking policy shared by the slot picker and booking forms.
type Window struct {
	HorizonMonths int
	Location      *time.Location
}

func NewWindow(horizonMonths int, loc *time.Location) Window {
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	if loc == nil {
		loc = time.UTC
	}
	return Window{HorizonMonths: horizonMonths, Location: loc}
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

func (w Window) Today(now time.Time) Date {
	return DateOf(now.In(w.loc()))
}

// LastBookable is the final date inside the horizon.
func (w Window) LastBookable(now time.Time) Date {
	months := w.HorizonMonths
	if months <= 0 {
		months = DefaultHorizonMonths
	}
	return w.Today(now).AddMonths(months)
}

// ValidateDate applies the date rules only; a past date is rejected
// regardless of any time value.
func (w Window) ValidateDate(dateStr string, now time.Time) (Date, error) {
	date, err := ParseDate(dateStr)
	if err != nil {
		return Date{}, reject(RejectInvalidDate, "invalid date %q", dateStr)
	}
	today := w.Today(now)
	if date.Before(today) {
		return Date{}, reject(RejectPastDate, "date %s is in the past", date)
	}
	if last := w.LastBookable(now); date.After(last) {
		return Date{}, reject(RejectBeyondHorizon, "date %s is beyond the booking horizon (%s)", date, last)
	}
	return date, nil
}

func (w Window) Validate(dateStr, timeStr string, now time.Time) error {
	_, _, err := w.Check(dateStr, timeStr, now)
	return err
}

// Check validates and returns the parsed civil pair.
func (w Window) Check(dateStr, timeStr string, now time.Time) (Date, Clock, error) {
	date, err := w.ValidateDate(dateStr, now)
	if err != nil {
		return Date{}, 0, err
	}
	clock, err := ParseClock(timeStr)
	if err != nil {
		return Date{}, 0, reject(RejectInvalidTime, "invalid time %q", timeStr)
	}
	if date == w.Today(now) && !date.At(clock, w.loc()).After(now) {
		return Date{}, 0, reject(RejectPastTime, "time %s has already passed", clock)
	}
	return date, clock, nil
}
