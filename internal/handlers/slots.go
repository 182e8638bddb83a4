package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/transport"
)

type slotsQuery struct {
	Date      string `validate:"required,date"`
	ServiceID string `validate:"omitempty,max=64"`
}

type nextQuery struct {
	From      string `validate:"omitempty,date"`
	ServiceID string `validate:"omitempty,max=64"`
}

func (s *Server) GetSlots(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))
	values := r.URL.Query()

	q := slotsQuery{Date: strings.TrimSpace(values.Get("date")), ServiceID: strings.TrimSpace(values.Get("serviceId"))}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("slots: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", validationDetails(s.Val, err))
		return
	}
	duration, err := parseDurationParam(values.Get("duration"))
	if err != nil {
		log.Warn("slots: invalid duration")
		transport.WriteError(w, http.StatusBadRequest, "invalid duration", map[string]string{"duration": "duration"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	minutes, _, err := s.Appointments.ResolveDuration(ctx, providerID, q.ServiceID, duration)
	if err != nil {
		log.Warn("slots: duration unresolved", slog.String("service_id", q.ServiceID), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	day, err := s.Appointments.Slots(ctx, providerID, q.Date, minutes, httpx.QueryBool(values, "available"))
	if err != nil {
		s.logAppError(log, "slots", err, slog.String("provider_id", providerID), slog.String("date", q.Date))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("slots: ok",
		slog.String("provider_id", providerID),
		slog.String("date", q.Date),
		slog.Int("duration", minutes),
		slog.Int("slots", len(day.Slots)),
		slog.String("status", day.Status),
	)
	transport.WriteJSON(w, http.StatusOK, day)
}

func (s *Server) GetNextSlot(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))
	values := r.URL.Query()

	q := nextQuery{From: strings.TrimSpace(values.Get("from")), ServiceID: strings.TrimSpace(values.Get("serviceId"))}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("slots next: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", validationDetails(s.Val, err))
		return
	}
	duration, err := parseDurationParam(values.Get("duration"))
	if err != nil {
		log.Warn("slots next: invalid duration")
		transport.WriteError(w, http.StatusBadRequest, "invalid duration", map[string]string{"duration": "duration"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	minutes, _, err := s.Appointments.ResolveDuration(ctx, providerID, q.ServiceID, duration)
	if err != nil {
		log.Warn("slots next: duration unresolved", slog.String("service_id", q.ServiceID), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	next, err := s.Appointments.NextAvailable(ctx, providerID, q.From, minutes)
	if err != nil {
		s.logAppError(log, "slots next", err, slog.String("provider_id", providerID))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("slots next: ok",
		slog.String("provider_id", providerID),
		slog.String("date", next.Date.String()),
		slog.String("time", next.Time.String()),
	)
	transport.WriteJSON(w, http.StatusOK, next)
}

// logAppError logs storage failures as errors and caller mistakes as warnings.
func (s *Server) logAppError(log *slog.Logger, op string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	switch kind := apperr.KindOf(err); kind {
	case apperr.StorageFailure, "":
		log.Error(op+": failed", attrs...)
	default:
		log.Warn(op+": rejected", append(attrs, slog.String("kind", string(kind)))...)
	}
}
