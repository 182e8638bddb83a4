package schedule

import (
	"reflect"
	"testing"
)

func slotAt(t *testing.T, slots []TimeSlot, clock string) TimeSlot {
	t.Helper()
	s, ok := FindSlot(slots, mustClock(t, clock))
	if !ok {
		t.Fatalf("no slot at %s", clock)
	}
	return s
}

func TestAnnotateConfirmedBookingBlocksOverlaps(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	bookings := []Booking{{Start: mustClock(t, "10:00"), DurationMinutes: 60, Status: StatusConfirmed}}

	slots, err := Compute(monday, 60, cfg, bookings)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	for _, clock := range []string{"09:00", "09:15", "10:00", "11:00"} {
		s := slotAt(t, slots, clock)
		if s.Available || s.Reason != ReasonBooked {
			t.Fatalf("expected %s booked, got available=%v reason=%q", clock, s.Available, s.Reason)
		}
	}
	if s := slotAt(t, slots, "11:15"); !s.Available {
		t.Fatalf("expected 11:15 available once the occupied window ends")
	}
}

func TestAnnotateCancelledBookingBlocksNothing(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	for _, status := range []Status{StatusCancelled, StatusCompleted, StatusArchived} {
		bookings := []Booking{{Start: mustClock(t, "10:00"), DurationMinutes: 60, Status: status}}
		slots, err := Compute(monday, 60, cfg, bookings)
		if err != nil {
			t.Fatalf("Compute error: %v", err)
		}
		if len(AvailableOnly(slots)) != len(slots) {
			t.Fatalf("%s appointment must not block any slot", status)
		}
	}
}

func TestAnnotateBreakTime(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.Breaks = []Break{{Day: Monday, Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")}}

	slots, err := Compute(monday, 60, cfg, nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	for _, clock := range []string{"11:00", "11:30", "12:00", "12:45"} {
		s := slotAt(t, slots, clock)
		if s.Available || s.Reason != ReasonBreak {
			t.Fatalf("expected %s to be break time, got available=%v reason=%q", clock, s.Available, s.Reason)
		}
	}
	// 10:45-12:00 touches the break without overlapping it.
	if s := slotAt(t, slots, "10:45"); !s.Available {
		t.Fatalf("expected 10:45 available")
	}
	if s := slotAt(t, slots, "13:00"); !s.Available {
		t.Fatalf("expected 13:00 available")
	}

	tuesday, _ := Compute(monday.AddDays(1), 60, cfg, nil)
	if len(AvailableOnly(tuesday)) != len(tuesday) {
		t.Fatalf("a monday break must not affect tuesday")
	}
}

func TestAnnotateBreakWinsOverBooking(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.Breaks = []Break{{Day: Monday, Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")}}
	bookings := []Booking{{Start: mustClock(t, "12:00"), DurationMinutes: 30, Status: StatusPending}}

	slots, _ := Compute(monday, 30, cfg, bookings)
	if s := slotAt(t, slots, "12:00"); s.Reason != ReasonBreak {
		t.Fatalf("expected break precedence, got %q", s.Reason)
	}
}

func TestAnnotateNeverOffersOverlapWithActiveBooking(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.BufferMinutes = 10
	bookings := []Booking{
		{Start: mustClock(t, "09:20"), DurationMinutes: 25, Status: StatusPending},
		{Start: mustClock(t, "11:00"), DurationMinutes: 0, Status: StatusInProgress},
		{Start: mustClock(t, "14:05"), DurationMinutes: 50, Status: StatusConfirmed},
		{Start: mustClock(t, "15:00"), DurationMinutes: 120, Status: StatusCancelled},
	}

	for _, duration := range []int{15, 30, 45, 60, 75} {
		slots, err := Compute(monday, duration, cfg, bookings)
		if err != nil {
			t.Fatalf("Compute error: %v", err)
		}
		for _, s := range AvailableOnly(slots) {
			for _, b := range bookings {
				if b.Status.Active() && Overlaps(s.Interval(), b.Occupied(cfg.BufferMinutes)) {
					t.Fatalf("slot %s-%s overlaps active booking at %s", s.Start, s.End, b.Start)
				}
			}
		}
	}
}

func TestAnnotateIsPure(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	candidates, _ := Generate(monday, 60, cfg)
	snapshot := append([]TimeSlot(nil), candidates...)
	bookings := []Booking{{Start: mustClock(t, "10:00"), DurationMinutes: 60, Status: StatusConfirmed}}

	first := Annotate(candidates, cfg.Breaks, bookings, cfg.BufferMinutes)
	second := Annotate(candidates, cfg.Breaks, bookings, cfg.BufferMinutes)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Annotate is not idempotent")
	}
	if !reflect.DeepEqual(candidates, snapshot) {
		t.Fatalf("Annotate modified its input")
	}
	if len(first) != len(candidates) {
		t.Fatalf("expected %d annotated slots, got %d", len(candidates), len(first))
	}
}

func TestBookingOccupiedDefaultsDuration(t *testing.T) {
	b := Booking{Start: NewClock(10, 0)}
	got := b.Occupied(15)
	if got.End-got.Start != DefaultAppointmentMinutes+15 {
		t.Fatalf("unexpected occupied window %+v", got)
	}
}
