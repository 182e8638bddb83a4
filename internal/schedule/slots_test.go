package schedule

import (
	"reflect"
	"testing"
)

// 2026-02-02 is a Monday.
var monday = Date{Year: 2026, Month: 2, Day: 2}

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q) error: %v", s, err)
	}
	return c
}

func TestGenerateDefaultGrid(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	slots, err := Generate(monday, 60, cfg)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(slots) != 28 {
		t.Fatalf("expected 28 slots, got %d", len(slots))
	}
	first := slots[0]
	if first.Start != mustClock(t, "09:00") || first.End != mustClock(t, "10:15") {
		t.Fatalf("unexpected first slot: %s-%s", first.Start, first.End)
	}
	last := slots[len(slots)-1]
	if last.Start != mustClock(t, "15:45") || last.End != mustClock(t, "17:00") {
		t.Fatalf("unexpected last slot: %s-%s", last.Start, last.End)
	}
	if _, ok := FindSlot(slots, mustClock(t, "16:00")); ok {
		t.Fatalf("no slot may start at 16:00")
	}
}

func TestGenerateNoPartialSlots(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.BufferMinutes = 0
	cfg.BusinessHours[Monday] = Hours{Start: mustClock(t, "09:00"), End: mustClock(t, "10:00")}

	slots, err := Generate(monday, 45, cfg)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %v", len(slots), slots)
	}
	if slots[1].Start != mustClock(t, "09:15") || slots[1].End != mustClock(t, "10:00") {
		t.Fatalf("unexpected trailing slot: %s-%s", slots[1].Start, slots[1].End)
	}
}

func TestGenerateBlockedDateIsEmpty(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.BlockedDates = []Date{monday}
	cfg.BusinessHours[Monday] = Hours{Start: 0, End: MinutesPerDay}

	slots, err := Generate(monday, 30, cfg)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a blocked date, got %d", len(slots))
	}
	if got := DayClosure(monday, cfg); got != ClosedBlockedDate {
		t.Fatalf("expected closure %q, got %q", ClosedBlockedDate, got)
	}
}

func TestGenerateNonWorkingDay(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.WorkingDays = []Weekday{Tuesday, Wednesday}

	slots, err := Generate(monday, 30, cfg)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected 0 slots, got %d", len(slots))
	}
	if got := DayClosure(monday, cfg); got != ClosedNotWorking {
		t.Fatalf("expected closure %q, got %q", ClosedNotWorking, got)
	}
}

func TestGenerateMissingHours(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	delete(cfg.BusinessHours, Monday)

	slots, err := Generate(monday, 30, cfg)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected 0 slots, got %d", len(slots))
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	if _, err := Generate(monday, 0, cfg); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := Generate(Date{}, 30, cfg); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestGenerateStaysWithinBusinessHours(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.BusinessHours[Monday] = Hours{Start: mustClock(t, "07:30"), End: mustClock(t, "12:10")}
	cfg.BusinessHours[Tuesday] = Hours{Start: mustClock(t, "13:00"), End: MinutesPerDay}

	for _, buffer := range []int{0, 5, 15, 30} {
		cfg.BufferMinutes = buffer
		for _, date := range []Date{monday, monday.AddDays(1), monday.AddDays(4)} {
			hours := cfg.BusinessHours[date.Weekday()]
			for _, duration := range []int{15, 20, 45, 60, 90, 240} {
				slots, err := Generate(date, duration, cfg)
				if err != nil {
					t.Fatalf("Generate error: %v", err)
				}
				for _, s := range slots {
					if s.Start < hours.Start || s.End > hours.End {
						t.Fatalf("slot %s-%s outside hours %s-%s", s.Start, s.End, hours.Start, hours.End)
					}
					if int(s.End-s.Start) != duration+buffer {
						t.Fatalf("slot %s-%s has wrong length", s.Start, s.End)
					}
					if int(s.Start-hours.Start)%StepMinutes != 0 {
						t.Fatalf("slot %s is off the grid", s.Start)
					}
				}
			}
		}
	}
}

func TestFilterPast(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	slots, _ := Generate(monday, 60, cfg)
	now := monday.At(mustClock(t, "10:00"), nil)

	filtered := FilterPast(slots, nil, now)
	if filtered[0].Start != mustClock(t, "10:15") {
		t.Fatalf("expected first future slot 10:15, got %s", filtered[0].Start)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	a, _ := Generate(monday, 50, cfg)
	b, _ := Generate(monday, 50, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Generate is not deterministic")
	}
}
