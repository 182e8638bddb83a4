package schedule

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{
		"monday":  Monday,
		"Monday":  Monday,
		"MON":     Monday,
		"sunday":  Sunday,
		" sat ":   Saturday,
		"Thu":     Thursday,
		"tuesday": Tuesday,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWeekday("funday"); !errors.Is(err, ErrUnknownWeekday) {
		t.Fatalf("expected ErrUnknownWeekday, got %v", err)
	}
}

func TestDateWeekday(t *testing.T) {
	if got := monday.Weekday(); got != Monday {
		t.Fatalf("expected monday, got %s", got)
	}
	if got := monday.AddDays(6).Weekday(); got != Sunday {
		t.Fatalf("expected sunday, got %s", got)
	}
}

func TestNormalizeFillsHoursAndDedups(t *testing.T) {
	in := Availability{
		BusinessHours: map[Weekday]Hours{
			Monday:  {Start: NewClock(8, 0), End: NewClock(12, 0)},
			Tuesday: {Start: NewClock(10, 0)},
		},
		WorkingDays:   []Weekday{Wednesday, Monday, Tuesday, Monday},
		BufferMinutes: 10,
		BlockedDates:  []Date{monday.AddDays(2), monday, monday.AddDays(2), {}},
		Timezone:      " Europe/Paris ",
	}

	out := in.Normalize()

	if len(out.WorkingDays) != 3 || out.WorkingDays[0] != Monday || out.WorkingDays[2] != Wednesday {
		t.Fatalf("unexpected working days %v", out.WorkingDays)
	}
	if out.BusinessHours[Monday].Start != NewClock(8, 0) {
		t.Fatalf("complete hours must be kept")
	}
	if out.BusinessHours[Wednesday] != DefaultHours() {
		t.Fatalf("missing hours must default to 09:00-17:00")
	}
	if out.BusinessHours[Tuesday] != (Hours{Start: NewClock(10, 0)}) {
		t.Fatalf("present hours must be kept for Validate, got %+v", out.BusinessHours[Tuesday])
	}
	if err := out.Validate(); err == nil {
		t.Fatalf("empty closing time must fail validation")
	}
	if len(out.BlockedDates) != 2 || out.BlockedDates[0] != monday {
		t.Fatalf("unexpected blocked dates %v", out.BlockedDates)
	}
	if out.Timezone != "Europe/Paris" {
		t.Fatalf("timezone not trimmed: %q", out.Timezone)
	}
	if len(in.WorkingDays) != 4 {
		t.Fatalf("Normalize modified its receiver")
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("normalized config should validate: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultAvailability("Nowhere/Land")
	cfg.BufferMinutes = -5
	cfg.BusinessHours[Monday] = Hours{Start: NewClock(17, 0), End: NewClock(9, 0)}
	cfg.Breaks = []Break{
		{Day: Tuesday, Start: NewClock(13, 0), End: NewClock(12, 0)},
		{Day: Wednesday, Start: NewClock(16, 30), End: NewClock(18, 0)},
	}

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]string{
		"bufferMinutes":        "gte",
		"timezone":             "timezone",
		"businessHours.monday": "start_before_end",
		"breaks[0]":            "start_before_end",
		"breaks[1]":            "within_hours",
	}
	for field, rule := range want {
		if verr.Fields[field] != rule {
			t.Fatalf("field %s: expected %q, got %q (all: %v)", field, rule, verr.Fields[field], verr.Fields)
		}
	}
}

func TestValidateBreakOnClosedDay(t *testing.T) {
	cfg := DefaultAvailability("UTC")
	cfg.WorkingDays = []Weekday{Monday}
	cfg.Breaks = []Break{{Day: Friday, Start: NewClock(12, 0), End: NewClock(13, 0)}}

	var verr *ValidationError
	if !errors.As(cfg.Validate(), &verr) || verr.Fields["breaks[0]"] != "working_day" {
		t.Fatalf("expected working_day violation, got %v", verr)
	}
}

func TestAvailabilityJSONUsesWeekdayNames(t *testing.T) {
	raw := `{
		"businessHours": {"monday": {"start": "08:00", "end": "24:00"}},
		"workingDays": ["monday", "Tue"],
		"breaks": [{"day": "monday", "start": "12:00", "end": "12:30"}],
		"bufferMinutes": 15,
		"blockedDates": ["2026-02-09"],
		"timezone": "UTC"
	}`
	var cfg Availability
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if cfg.BusinessHours[Monday].End != MinutesPerDay {
		t.Fatalf("expected closing at midnight, got %s", cfg.BusinessHours[Monday].End)
	}
	if cfg.WorkingDays[1] != Tuesday {
		t.Fatalf("expected abbreviation to parse, got %v", cfg.WorkingDays)
	}
	if !cfg.IsBlocked(monday.AddDays(7)) {
		t.Fatalf("expected 2026-02-09 to be blocked")
	}

	if err := json.Unmarshal([]byte(`{"businessHours": {"someday": {"start": "08:00", "end": "09:00"}}}`), &cfg); err == nil {
		t.Fatalf("expected unknown weekday key to fail")
	}
}
