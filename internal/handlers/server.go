package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/config"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/validation"
)

type BookingMailer interface {
	SendBookingConfirmation(ctx context.Context, appointment appointments.Appointment) (string, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Cfg          *config.Config
	Appointments *appointments.Service
	Val          *validation.Validator
	Log          *slog.Logger
	Mailer       BookingMailer
	Checks       map[string]Pinger
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}

func (s *Server) requestTimeout() time.Duration {
	if s.Cfg == nil || s.Cfg.BookingTimeout() <= 0 {
		return 5 * time.Second
	}
	return s.Cfg.BookingTimeout()
}

func (s *Server) location() *time.Location {
	if s.Cfg == nil || s.Cfg.Timezone == nil {
		return time.UTC
	}
	return s.Cfg.Timezone
}
