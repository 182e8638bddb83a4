package availability

import (
	"strings"
	"time"

	"tapdetail-backend/internal/schedule"
)

type hoursDocument struct {
	Start string `bson:"start"`
	End   string `bson:"end"`
}

type breakDocument struct {
	Day   string `bson:"day"`
	Start string `bson:"start"`
	End   string `bson:"end"`
}

// Document is the stored shape: weekday keys are lower-case names and civil
// values are strings so the collection stays readable from the shell.
type Document struct {
	ProviderID    string                   `bson:"provider_id"`
	BusinessHours map[string]hoursDocument `bson:"business_hours"`
	WorkingDays   []string                 `bson:"working_days"`
	Breaks        []breakDocument          `bson:"breaks"`
	BufferMinutes int                      `bson:"buffer_minutes"`
	BlockedDates  []string                 `bson:"blocked_dates"`
	Timezone      string                   `bson:"timezone"`
	CreatedAt     time.Time                `bson:"created_at"`
	UpdatedAt     time.Time                `bson:"updated_at"`
}

func toDocument(providerID string, cfg schedule.Availability, now time.Time) Document {
	doc := Document{
		ProviderID:    providerID,
		BusinessHours: make(map[string]hoursDocument, len(cfg.BusinessHours)),
		WorkingDays:   make([]string, 0, len(cfg.WorkingDays)),
		Breaks:        make([]breakDocument, 0, len(cfg.Breaks)),
		BufferMinutes: cfg.BufferMinutes,
		BlockedDates:  make([]string, 0, len(cfg.BlockedDates)),
		Timezone:      cfg.Timezone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for day, h := range cfg.BusinessHours {
		doc.BusinessHours[day.String()] = hoursDocument{Start: h.Start.String(), End: h.End.String()}
	}
	for _, day := range cfg.WorkingDays {
		doc.WorkingDays = append(doc.WorkingDays, day.String())
	}
	for _, b := range cfg.Breaks {
		doc.Breaks = append(doc.Breaks, breakDocument{Day: b.Day.String(), Start: b.Start.String(), End: b.End.String()})
	}
	for _, d := range cfg.BlockedDates {
		doc.BlockedDates = append(doc.BlockedDates, d.String())
	}
	return doc
}

// toAvailability decodes leniently: entries that no longer parse are skipped
// and reported by path so the caller can log them. Nothing is written back.
func (d Document) toAvailability() (schedule.Availability, []string) {
	var skipped []string
	cfg := schedule.Availability{
		BusinessHours: make(map[schedule.Weekday]schedule.Hours, len(d.BusinessHours)),
		BufferMinutes: d.BufferMinutes,
		Timezone:      d.Timezone,
	}

	for key, h := range d.BusinessHours {
		day, err := schedule.ParseWeekday(key)
		if err != nil {
			skipped = append(skipped, "business_hours."+key)
			continue
		}
		start, errStart := schedule.ParseClock(h.Start)
		end, errEnd := schedule.ParseClosingClock(h.End)
		if errStart != nil || errEnd != nil {
			skipped = append(skipped, "business_hours."+key)
			continue
		}
		cfg.BusinessHours[day] = schedule.Hours{Start: start, End: end}
	}
	for _, raw := range d.WorkingDays {
		day, err := schedule.ParseWeekday(raw)
		if err != nil {
			skipped = append(skipped, "working_days."+raw)
			continue
		}
		cfg.WorkingDays = append(cfg.WorkingDays, day)
	}
	for _, b := range d.Breaks {
		day, errDay := schedule.ParseWeekday(b.Day)
		start, errStart := schedule.ParseClock(b.Start)
		end, errEnd := schedule.ParseClosingClock(b.End)
		if errDay != nil || errStart != nil || errEnd != nil {
			skipped = append(skipped, "breaks."+strings.ToLower(b.Day))
			continue
		}
		cfg.Breaks = append(cfg.Breaks, schedule.Break{Day: day, Start: start, End: end})
	}
	for _, raw := range d.BlockedDates {
		date, err := schedule.ParseDate(raw)
		if err != nil {
			skipped = append(skipped, "blocked_dates."+raw)
			continue
		}
		cfg.BlockedDates = append(cfg.BlockedDates, date)
	}
	return cfg, skipped
}

type HoursInput struct {
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,closing"`
}

type BreakInput struct {
	Day   string `json:"day" validate:"required,weekday"`
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,closing"`
}

type UpdateRequest struct {
	BusinessHours map[string]HoursInput `json:"businessHours" validate:"required,dive,keys,weekday,endkeys"`
	WorkingDays   []string              `json:"workingDays" validate:"dive,weekday"`
	Breaks        []BreakInput          `json:"breaks" validate:"dive"`
	BufferMinutes *int                  `json:"bufferMinutes" validate:"omitempty,gte=0"`
	BlockedDates  []string              `json:"blockedDates" validate:"dive,date"`
	Timezone      string                `json:"timezone" validate:"omitempty,timezone"`
}

// ToAvailability assumes the request passed validation.
func (req UpdateRequest) ToAvailability() schedule.Availability {
	cfg := schedule.Availability{
		BusinessHours: make(map[schedule.Weekday]schedule.Hours, len(req.BusinessHours)),
		BufferMinutes: schedule.DefaultBufferMinutes,
		Timezone:      strings.TrimSpace(req.Timezone),
	}
	if req.BufferMinutes != nil {
		cfg.BufferMinutes = *req.BufferMinutes
	}
	for key, h := range req.BusinessHours {
		day, _ := schedule.ParseWeekday(key)
		start, _ := schedule.ParseClock(h.Start)
		end, _ := schedule.ParseClosingClock(h.End)
		cfg.BusinessHours[day] = schedule.Hours{Start: start, End: end}
	}
	for _, raw := range req.WorkingDays {
		day, _ := schedule.ParseWeekday(raw)
		cfg.WorkingDays = append(cfg.WorkingDays, day)
	}
	for _, b := range req.Breaks {
		day, _ := schedule.ParseWeekday(b.Day)
		start, _ := schedule.ParseClock(b.Start)
		end, _ := schedule.ParseClosingClock(b.End)
		cfg.Breaks = append(cfg.Breaks, schedule.Break{Day: day, Start: start, End: end})
	}
	for _, raw := range req.BlockedDates {
		date, _ := schedule.ParseDate(raw)
		cfg.BlockedDates = append(cfg.BlockedDates, date)
	}
	return cfg
}
