package schedule

// Booking is the slice of an appointment the resolver needs.
type Booking struct {
	Start           Clock
	DurationMinutes int
	Status          Status
}

// Occupied is the window the booking holds: its duration plus the buffer.
func (b Booking) Occupied(bufferMinutes int) Interval {
	duration := b.DurationMinutes
	if duration <= 0 {
		duration = DefaultAppointmentMinutes
	}
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	return Interval{Start: int(b.Start), End: int(b.Start) + duration + bufferMinutes}
}

// Annotate marks each candidate unavailable when it overlaps a break on its
// weekday or the occupied window of an active booking. Breaks win over
// bookings. The input slice is not modified.
func Annotate(candidates []TimeSlot, breaks []Break, bookings []Booking, bufferMinutes int) []TimeSlot {
	occupied := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Status.Active() {
			occupied = append(occupied, b.Occupied(bufferMinutes))
		}
	}

	out := make([]TimeSlot, len(candidates))
	for i, c := range candidates {
		c.Available = true
		c.Reason = ""
		current := c.Interval()
		day := c.Date.Weekday()

		for _, br := range breaks {
			if br.Day == day && Overlaps(current, Interval{Start: int(br.Start), End: int(br.End)}) {
				c.Available = false
				c.Reason = ReasonBreak
				break
			}
		}
		if c.Available {
			for _, o := range occupied {
				if Overlaps(current, o) {
					c.Available = false
					c.Reason = ReasonBooked
					break
				}
			}
		}
		out[i] = c
	}
	return out
}

// Compute runs the generator and the resolver for one day.
func Compute(date Date, durationMinutes int, cfg Availability, bookings []Booking) ([]TimeSlot, error) {
	candidates, err := Generate(date, durationMinutes, cfg)
	if err != nil {
		return nil, err
	}
	return Annotate(candidates, cfg.Breaks, bookings, cfg.BufferMinutes), nil
}
