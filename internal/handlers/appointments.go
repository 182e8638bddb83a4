package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/transport"
)

// IdempotencyHeader lets clients retry a booking without creating a second one.
const IdempotencyHeader = "Idempotency-Key"

func (s *Server) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))

	idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if idempotencyKey != "" {
		if _, err := uuid.Parse(idempotencyKey); err != nil {
			log.Warn("appointments create: invalid idempotency key")
			transport.WriteError(w, http.StatusBadRequest, "invalid idempotency key", map[string]string{IdempotencyHeader: "uuid"})
			return
		}
	}

	var req appointments.BookingRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("appointments create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	appointment, created, err := s.Appointments.Book(ctx, providerID, req, idempotencyKey)
	if err != nil {
		s.logAppError(log, "appointments create", err,
			slog.String("provider_id", providerID),
			slog.String("date", req.Date),
			slog.String("time", req.Time),
		)
		transport.WriteAppError(w, err)
		return
	}

	if !created {
		log.Info("appointments create: replayed", slog.String("appointment_id", appointment.ID))
		transport.WriteJSON(w, http.StatusOK, appointment)
		return
	}

	if s.Mailer != nil && appointment.ClientEmail != "" {
		go s.sendBookingConfirmation(log, appointment)
	}

	log.Info("appointments create: booked",
		slog.String("appointment_id", appointment.ID),
		slog.String("provider_id", providerID),
		slog.String("date", appointment.Date.String()),
		slog.String("time", appointment.Time.String()),
	)
	transport.WriteJSON(w, http.StatusCreated, appointment)
}

func (s *Server) sendBookingConfirmation(log *slog.Logger, appointment appointments.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	messageID, err := s.Mailer.SendBookingConfirmation(ctx, appointment)
	if err != nil {
		log.Warn("appointments email: send failed",
			slog.String("appointment_id", appointment.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	log.Info("appointments email: sent",
		slog.String("appointment_id", appointment.ID),
		slog.String("message_id", messageID),
	)
}

func (s *Server) GetAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("appointments get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	appointment, err := s.Appointments.Get(ctx, id)
	if err != nil {
		s.logAppError(log, "appointments get", err, slog.String("appointment_id", id))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("appointments get: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, appointment)
}
