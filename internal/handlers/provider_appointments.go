package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/schedule"
	"tapdetail-backend/internal/transport"
)

type listQuery struct {
	Date   string `validate:"omitempty,date"`
	Status string `validate:"omitempty,status"`
}

func (s *Server) ListProviderAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	values := r.URL.Query()

	q := listQuery{Date: strings.TrimSpace(values.Get("date")), Status: strings.TrimSpace(values.Get("status"))}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("provider appointments list: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", validationDetails(s.Val, err))
		return
	}
	page, err := httpx.ParsePage(values, 100, 500)
	if err != nil {
		log.Warn("provider appointments list: invalid pagination")
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := appointments.ListFilter{ProviderID: providerID, Limit: page.Limit, Offset: page.Offset}
	if q.Date != "" {
		filter.Date, _ = schedule.ParseDate(q.Date)
	}
	if q.Status != "" {
		filter.Status, _ = schedule.ParseStatus(q.Status)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	items, err := s.Appointments.List(ctx, filter)
	if err != nil {
		s.logAppError(log, "provider appointments list", err, slog.String("provider_id", providerID))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("provider appointments list: ok", slog.String("provider_id", providerID), slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": items,
		"total":        appointments.Total(items),
	})
}

func (s *Server) CreateManualAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())

	var req appointments.ManualRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("provider appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("provider appointments create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	appointment, err := s.Appointments.CreateManual(ctx, providerID, req)
	if err != nil {
		s.logAppError(log, "provider appointments create", err, slog.String("provider_id", providerID))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("provider appointments create: ok", slog.String("appointment_id", appointment.ID))
	transport.WriteJSON(w, http.StatusCreated, appointment)
}

func (s *Server) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req appointments.StatusRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("provider appointments status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("provider appointments status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	appointment, err := s.Appointments.Transition(ctx, providerID, id, req.Status)
	if err != nil {
		s.logAppError(log, "provider appointments status", err, slog.String("appointment_id", id), slog.String("to", req.Status))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("provider appointments status: ok", slog.String("appointment_id", id), slog.String("status", string(appointment.Status)))
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (s *Server) UpdateAppointmentDuration(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req appointments.DurationRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("provider appointments duration: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("provider appointments duration: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	appointment, err := s.Appointments.SetActualDuration(ctx, providerID, id, req.ActualDuration)
	if err != nil {
		s.logAppError(log, "provider appointments duration", err, slog.String("appointment_id", id))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("provider appointments duration: ok", slog.String("appointment_id", id), slog.Int("minutes", req.ActualDuration))
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (s *Server) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	if _, err := s.Appointments.Delete(ctx, providerID, id); err != nil {
		s.logAppError(log, "provider appointments delete", err, slog.String("appointment_id", id))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("provider appointments delete: ok", slog.String("appointment_id", id))
	w.WriteHeader(http.StatusNoContent)
}
