package schedule

import "time"

const (
	ReasonBreak  = "Break time"
	ReasonBooked = "Booked"

	ClosedBlockedDate = "blocked date"
	ClosedNotWorking  = "not a working day"
	ClosedNoHours     = "no business hours"
)

// TimeSlot is a candidate interval [Start, End) on Date. End includes the buffer.
type TimeSlot struct {
	Date      Date   `json:"date"`
	Start     Clock  `json:"start"`
	End       Clock  `json:"end"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func (s TimeSlot) Interval() Interval {
	return Interval{Start: int(s.Start), End: int(s.End)}
}

type Interval struct {
	Start int
	End   int
}

// Overlaps is the half-open test: touching intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// DayClosure explains why date yields no candidates, or returns "" when it is open.
func DayClosure(date Date, cfg Availability) string {
	day := date.Weekday()
	switch {
	case cfg.IsBlocked(date):
		return ClosedBlockedDate
	case !cfg.IsWorkingDay(day):
		return ClosedNotWorking
	}
	h, ok := cfg.BusinessHours[day]
	if !ok || h.Start >= h.End {
		return ClosedNoHours
	}
	return ""
}

// Generate walks the day's business hours on a fixed 15-minute grid and emits
// every [step, step+duration+buffer) that fits entirely inside them.
func Generate(date Date, durationMinutes int, cfg Availability) ([]TimeSlot, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if DayClosure(date, cfg) != "" {
		return []TimeSlot{}, nil
	}

	hours := cfg.BusinessHours[date.Weekday()]
	required := durationMinutes
	if cfg.BufferMinutes > 0 {
		required += cfg.BufferMinutes
	}

	slots := make([]TimeSlot, 0, (int(hours.End-hours.Start)/StepMinutes)+1)
	for cursor := hours.Start; cursor.Add(required) <= hours.End; cursor = cursor.Add(StepMinutes) {
		slots = append(slots, TimeSlot{
			Date:      date,
			Start:     cursor,
			End:       cursor.Add(required),
			Available: true,
		})
	}
	return slots, nil
}

func AvailableOnly(slots []TimeSlot) []TimeSlot {
	filtered := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FilterPast drops slots whose start is not strictly after now, seen in loc.
func FilterPast(slots []TimeSlot, loc *time.Location, now time.Time) []TimeSlot {
	filtered := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Date.At(s.Start, loc).After(now) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func FindSlot(slots []TimeSlot, start Clock) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Start == start {
			return s, true
		}
	}
	return TimeSlot{}, false
}
