package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/schedule"
)

const productID = "-//Tap Detail//Appointments//EN"

// Feed renders the provider's appointments as a published calendar. Only
// active appointments are included.
func Feed(name string, items []appointments.Appointment, fallback *time.Location, now time.Time) string {
	cal := newCalendar(ics.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	if fallback != nil {
		cal.SetXWRTimezone(fallback.String())
	}
	for _, a := range items {
		if !a.Status.Active() {
			continue
		}
		addEvent(cal, a, fallback, now)
	}
	return cal.Serialize()
}

// Invite is a single-event calendar suitable for an e-mail attachment.
func Invite(a appointments.Appointment, fallback *time.Location, now time.Time) string {
	cal := newCalendar(ics.MethodRequest)
	addEvent(cal, a, fallback, now)
	return cal.Serialize()
}

func newCalendar(method ics.Method) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(method)
	cal.SetProductId(productID)
	return cal
}

func addEvent(cal *ics.Calendar, a appointments.Appointment, fallback *time.Location, now time.Time) {
	event := cal.AddEvent(UID(a))
	event.SetDtStampTime(now.UTC())
	event.SetCreatedTime(a.CreatedAt.UTC())
	event.SetModifiedAt(a.UpdatedAt.UTC())
	event.SetStartAt(a.StartInstant(fallback))
	event.SetEndAt(a.EndInstant(fallback))
	event.SetSummary(summary(a))
	if desc := description(a); desc != "" {
		event.SetDescription(desc)
	}
	event.SetStatus(objectStatus(a.Status))
}

func UID(a appointments.Appointment) string {
	return a.ID + "@tapdetail"
}

func summary(a appointments.Appointment) string {
	if a.ServiceName != "" {
		return fmt.Sprintf("%s - %s", a.ServiceName, a.ClientName)
	}
	return a.ClientName
}

func description(a appointments.Appointment) string {
	lines := make([]string, 0, 3)
	if a.ClientPhone != "" {
		lines = append(lines, "Phone: "+a.ClientPhone)
	}
	if a.ClientEmail != "" {
		lines = append(lines, "Email: "+a.ClientEmail)
	}
	if a.Notes != "" {
		lines = append(lines, "Notes: "+a.Notes)
	}
	return strings.Join(lines, "\n")
}

func objectStatus(s schedule.Status) ics.ObjectStatus {
	switch s {
	case schedule.StatusPending:
		return ics.ObjectStatusTentative
	case schedule.StatusCancelled:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusConfirmed
	}
}
