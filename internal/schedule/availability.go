package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	StepMinutes               = 15
	DefaultBufferMinutes      = 15
	DefaultAppointmentMinutes = 60
)

var (
	DefaultOpening = NewClock(9, 0)
	DefaultClosing = NewClock(17, 0)
)

type Hours struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func DefaultHours() Hours {
	return Hours{Start: DefaultOpening, End: DefaultClosing}
}

type Break struct {
	Day   Weekday `json:"day"`
	Start Clock   `json:"start"`
	End   Clock   `json:"end"`
}

// Availability is a provider's recurring weekly schedule.
type Availability struct {
	BusinessHours map[Weekday]Hours `json:"businessHours"`
	WorkingDays   []Weekday         `json:"workingDays"`
	Breaks        []Break           `json:"breaks"`
	BufferMinutes int               `json:"bufferMinutes"`
	BlockedDates  []Date            `json:"blockedDates"`
	Timezone      string            `json:"timezone"`
}

func DefaultAvailability(timezone string) Availability {
	hours := make(map[Weekday]Hours, len(AllWeekdays))
	for _, d := range AllWeekdays {
		hours[d] = DefaultHours()
	}
	return Availability{
		BusinessHours: hours,
		WorkingDays:   append([]Weekday(nil), AllWeekdays...),
		Breaks:        []Break{},
		BufferMinutes: DefaultBufferMinutes,
		BlockedDates:  []Date{},
		Timezone:      timezone,
	}
}

func (a Availability) IsWorkingDay(d Weekday) bool {
	for _, wd := range a.WorkingDays {
		if wd == d {
			return true
		}
	}
	return false
}

func (a Availability) IsBlocked(date Date) bool {
	for _, b := range a.BlockedDates {
		if b == date {
			return true
		}
	}
	return false
}

func (a Availability) BreaksOn(d Weekday) []Break {
	out := make([]Break, 0)
	for _, b := range a.Breaks {
		if b.Day == d {
			out = append(out, b)
		}
	}
	return out
}

// Normalize returns a copy with sets deduplicated and sorted, and every working
// day without an hours entry given the default pair. Entries that are present
// are kept as given, even when empty; Validate rejects those.
func (a Availability) Normalize() Availability {
	out := Availability{
		BusinessHours: make(map[Weekday]Hours, len(a.BusinessHours)),
		BufferMinutes: a.BufferMinutes,
		Timezone:      strings.TrimSpace(a.Timezone),
	}
	for d, h := range a.BusinessHours {
		out.BusinessHours[d] = h
	}

	seenDays := make(map[Weekday]bool, len(a.WorkingDays))
	for _, d := range a.WorkingDays {
		if seenDays[d] {
			continue
		}
		seenDays[d] = true
		out.WorkingDays = append(out.WorkingDays, d)
	}
	sort.Slice(out.WorkingDays, func(i, j int) bool { return out.WorkingDays[i] < out.WorkingDays[j] })
	if out.WorkingDays == nil {
		out.WorkingDays = []Weekday{}
	}

	for _, d := range out.WorkingDays {
		if _, ok := out.BusinessHours[d]; !ok {
			out.BusinessHours[d] = DefaultHours()
		}
	}

	out.Breaks = append([]Break{}, a.Breaks...)
	sort.SliceStable(out.Breaks, func(i, j int) bool {
		if out.Breaks[i].Day != out.Breaks[j].Day {
			return out.Breaks[i].Day < out.Breaks[j].Day
		}
		return out.Breaks[i].Start < out.Breaks[j].Start
	})

	seenDates := make(map[Date]bool, len(a.BlockedDates))
	out.BlockedDates = make([]Date, 0, len(a.BlockedDates))
	for _, d := range a.BlockedDates {
		if d.IsZero() || seenDates[d] {
			continue
		}
		seenDates[d] = true
		out.BlockedDates = append(out.BlockedDates, d)
	}
	sort.Slice(out.BlockedDates, func(i, j int) bool { return out.BlockedDates[i].Before(out.BlockedDates[j]) })

	return out
}

// ValidationError maps a field path to the rule it broke, the same shape the
// HTTP layer reports for request validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid availability: " + strings.Join(parts, ", ")
}

func (a Availability) Validate() error {
	fields := make(map[string]string)

	if a.BufferMinutes < 0 {
		fields["bufferMinutes"] = "gte"
	}
	if a.Timezone != "" {
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			fields["timezone"] = "timezone"
		}
	}
	for d := range a.BusinessHours {
		if !d.Valid() {
			fields["businessHours"] = "weekday"
		}
	}
	for i, d := range a.WorkingDays {
		if !d.Valid() {
			fields[fmt.Sprintf("workingDays[%d]", i)] = "weekday"
			continue
		}
		h, ok := a.BusinessHours[d]
		key := "businessHours." + d.String()
		switch {
		case !ok:
			fields[key] = "required"
		case h.Start < 0 || h.End > MinutesPerDay:
			fields[key] = "range"
		case h.Start >= h.End:
			fields[key] = "start_before_end"
		}
	}
	for i, b := range a.Breaks {
		key := fmt.Sprintf("breaks[%d]", i)
		switch {
		case !b.Day.Valid():
			fields[key] = "weekday"
		case !a.IsWorkingDay(b.Day):
			fields[key] = "working_day"
		case b.Start >= b.End:
			fields[key] = "start_before_end"
		default:
			h := a.BusinessHours[b.Day]
			if b.Start < h.Start || b.End > h.End {
				fields[key] = "within_hours"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Location resolves the metadata timezone, falling back when it is empty or unknown.
func (a Availability) Location(fallback *time.Location) *time.Location {
	if a.Timezone != "" {
		if loc, err := time.LoadLocation(a.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}
