package appointments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/schedule"
)

const (
	SourceBooking = "booking"
	SourceManual  = "manual"
)

// Appointment carries its civil date, civil time and the provider timezone it
// was booked in. It becomes an instant only through StartInstant.
type Appointment struct {
	ID                string           `json:"id"`
	ProviderID        string           `json:"providerId"`
	ServiceID         string           `json:"serviceId,omitempty"`
	ServiceName       string           `json:"serviceName,omitempty"`
	ClientName        string           `json:"clientName"`
	ClientEmail       string           `json:"clientEmail,omitempty"`
	ClientPhone       string           `json:"clientPhone,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Date              schedule.Date    `json:"date"`
	Time              schedule.Clock   `json:"time"`
	Timezone          string           `json:"timezone"`
	EstimatedDuration int              `json:"estimatedDuration"`
	ActualDuration    int              `json:"actualDuration,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Status            schedule.Status  `json:"status"`
	Source            string           `json:"source"`
	IdempotencyKey    string           `json:"-"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	DeletedAt         *time.Time       `json:"deletedAt,omitempty"`
}

// OccupiedMinutes prefers the recorded actual duration, then the estimate,
// then the default appointment length.
func (a Appointment) OccupiedMinutes() int {
	switch {
	case a.ActualDuration > 0:
		return a.ActualDuration
	case a.EstimatedDuration > 0:
		return a.EstimatedDuration
	default:
		return schedule.DefaultAppointmentMinutes
	}
}

func (a Appointment) Booking() schedule.Booking {
	return schedule.Booking{Start: a.Time, DurationMinutes: a.OccupiedMinutes(), Status: a.Status}
}

// StartInstant resolves the civil start in the appointment's timezone, or in
// fallback when the stored name does not load.
func (a Appointment) StartInstant(fallback *time.Location) time.Time {
	loc := fallback
	if a.Timezone != "" {
		if l, err := time.LoadLocation(a.Timezone); err == nil {
			loc = l
		}
	}
	return a.Date.At(a.Time, loc)
}

func (a Appointment) EndInstant(fallback *time.Location) time.Time {
	return a.StartInstant(fallback).Add(time.Duration(a.OccupiedMinutes()) * time.Minute)
}

// Guard is the part of the provider configuration a booking must respect.
type Guard struct {
	Breaks        []schedule.Break
	BufferMinutes int
}

func GuardFor(cfg schedule.Availability) Guard {
	return Guard{Breaks: cfg.Breaks, BufferMinutes: cfg.BufferMinutes}
}

// Fits reports whether candidate can be placed next to existing without
// touching a break or an active appointment's occupied window.
func Fits(candidate Appointment, existing []Appointment, guard Guard) bool {
	bookings := make([]schedule.Booking, 0, len(existing))
	for _, e := range existing {
		if e.ID == candidate.ID || e.Date != candidate.Date {
			continue
		}
		bookings = append(bookings, e.Booking())
	}
	buffer := guard.BufferMinutes
	if buffer < 0 {
		buffer = 0
	}
	slot := schedule.TimeSlot{
		Date:  candidate.Date,
		Start: candidate.Time,
		End:   candidate.Time.Add(candidate.OccupiedMinutes() + buffer),
	}
	annotated := schedule.Annotate([]schedule.TimeSlot{slot}, guard.Breaks, bookings, buffer)
	return annotated[0].Available
}

type ListFilter struct {
	ProviderID string
	Date       schedule.Date
	From       schedule.Date
	Status     schedule.Status
	Limit      int64
	Offset     int64
}

type document struct {
	ID                string                `bson:"_id"`
	ProviderID        string                `bson:"provider_id"`
	ServiceID         string                `bson:"service_id,omitempty"`
	ServiceName       string                `bson:"service_name,omitempty"`
	ClientName        string                `bson:"client_name"`
	ClientEmail       string                `bson:"client_email,omitempty"`
	ClientPhone       string                `bson:"client_phone,omitempty"`
	Notes             string                `bson:"notes,omitempty"`
	Date              string                `bson:"date"`
	Time              string                `bson:"time"`
	Timezone          string                `bson:"timezone"`
	EstimatedDuration int                   `bson:"estimated_duration"`
	ActualDuration    int                   `bson:"actual_duration,omitempty"`
	Price             *primitive.Decimal128 `bson:"price,omitempty"`
	Status            string                `bson:"status"`
	Source            string                `bson:"source"`
	IdempotencyKey    string                `bson:"idempotency_key,omitempty"`
	CreatedAt         time.Time             `bson:"created_at"`
	UpdatedAt         time.Time             `bson:"updated_at"`
	DeletedAt         *time.Time            `bson:"deleted_at,omitempty"`
}

func toDocument(a Appointment) (document, error) {
	price, err := db.ToDecimal128Ptr(a.Price)
	if err != nil {
		return document{}, err
	}
	return document{
		ID:                a.ID,
		ProviderID:        a.ProviderID,
		ServiceID:         a.ServiceID,
		ServiceName:       a.ServiceName,
		ClientName:        a.ClientName,
		ClientEmail:       a.ClientEmail,
		ClientPhone:       a.ClientPhone,
		Notes:             a.Notes,
		Date:              a.Date.String(),
		Time:              a.Time.String(),
		Timezone:          a.Timezone,
		EstimatedDuration: a.EstimatedDuration,
		ActualDuration:    a.ActualDuration,
		Price:             price,
		Status:            string(a.Status),
		Source:            a.Source,
		IdempotencyKey:    a.IdempotencyKey,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		DeletedAt:         a.DeletedAt,
	}, nil
}

// toAppointment maps legacy status spellings in memory; the stored value is
// only rewritten by the migrate command.
func (d document) toAppointment() (Appointment, error) {
	date, err := schedule.ParseDate(d.Date)
	if err != nil {
		return Appointment{}, err
	}
	clock, err := schedule.ParseClock(d.Time)
	if err != nil {
		return Appointment{}, err
	}
	price, err := db.FromDecimal128Ptr(d.Price)
	if err != nil {
		return Appointment{}, err
	}
	status, ok := schedule.MigrateStatus(d.Status)
	if !ok {
		status = schedule.Status(strings.ToLower(d.Status))
	}
	return Appointment{
		ID:                d.ID,
		ProviderID:        d.ProviderID,
		ServiceID:         d.ServiceID,
		ServiceName:       d.ServiceName,
		ClientName:        d.ClientName,
		ClientEmail:       d.ClientEmail,
		ClientPhone:       d.ClientPhone,
		Notes:             d.Notes,
		Date:              date,
		Time:              clock,
		Timezone:          d.Timezone,
		EstimatedDuration: d.EstimatedDuration,
		ActualDuration:    d.ActualDuration,
		Price:             price,
		Status:            status,
		Source:            d.Source,
		IdempotencyKey:    d.IdempotencyKey,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		DeletedAt:         d.DeletedAt,
	}, nil
}

type BookingRequest struct {
	ServiceID   string `json:"serviceId" validate:"required_without=Duration"`
	Duration    int    `json:"duration" validate:"omitempty,gt=0,lte=1440"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,clock"`
	ClientName  string `json:"clientName" validate:"required,max=120"`
	ClientEmail string `json:"clientEmail" validate:"omitempty,email"`
	ClientPhone string `json:"clientPhone" validate:"required,phone"`
	Notes       string `json:"notes" validate:"max=1000"`
}

// ManualRequest is the provider's own entry form: no phone requirement, an
// optional price, and it may start out confirmed.
type ManualRequest struct {
	ServiceID   string           `json:"serviceId" validate:"required_without=Duration"`
	Duration    int              `json:"duration" validate:"omitempty,gt=0,lte=1440"`
	Date        string           `json:"date" validate:"required,date"`
	Time        string           `json:"time" validate:"required,clock"`
	ClientName  string           `json:"clientName" validate:"required,max=120"`
	ClientEmail string           `json:"clientEmail" validate:"omitempty,email"`
	ClientPhone string           `json:"clientPhone" validate:"omitempty,phone"`
	Notes       string           `json:"notes" validate:"max=1000"`
	Status      string           `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Price       *decimal.Decimal `json:"price"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,status"`
}

type DurationRequest struct {
	ActualDuration int `json:"actualDuration" validate:"required,gt=0,lte=1440"`
}
