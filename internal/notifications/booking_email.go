package notifications

import (
	"bytes"
	"html/template"
	"time"

	"tapdetail-backend/internal/appointments"
)

const bookingConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>We received your booking request. The details:</p>
  <ul>
    {{if .ServiceName}}<li>Service: {{.ServiceName}}</li>{{end}}
    <li>When: {{.When}} ({{.Timezone}})</li>
    <li>Duration: {{.DurationMinutes}} minutes</li>
    {{if .Price}}<li>Price: ${{.Price}}</li>{{end}}
    <li>Status: {{.Status}}</li>
    <li>Reference: {{.AppointmentID}}</li>
  </ul>
  <p>You will hear from us once the appointment is confirmed. The attached invite can be added to your calendar.</p>
  <p>Thank you.</p>
</body>
</html>`

var bookingConfirmationTmpl = template.Must(template.New("booking_confirmation").Parse(bookingConfirmationTemplate))

type bookingConfirmationData struct {
	Name            string
	ServiceName     string
	When            string
	Timezone        string
	DurationMinutes int
	Price           string
	Status          string
	AppointmentID   string
}

func buildBookingConfirmationHTML(appointment appointments.Appointment, fallback *time.Location) (string, error) {
	start := appointment.StartInstant(fallback)
	data := bookingConfirmationData{
		Name:            appointment.ClientName,
		ServiceName:     appointment.ServiceName,
		When:            start.Format("Monday, January 2, 2006 at 3:04 PM"),
		Timezone:        start.Location().String(),
		DurationMinutes: appointment.OccupiedMinutes(),
		Status:          string(appointment.Status),
		AppointmentID:   appointment.ID,
	}
	if appointment.Price != nil {
		data.Price = appointment.Price.StringFixed(2)
	}
	var buf bytes.Buffer
	if err := bookingConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
