package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/calendar"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/schedule"
	"tapdetail-backend/internal/transport"
)

const (
	// calendarLookbackDays keeps recent history in the feed.
	calendarLookbackDays = 30
	calendarMaxEvents    = 1000
)

func (s *Server) ProviderCalendar(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	now := time.Now()
	from := schedule.DateOf(now.In(s.location())).AddDays(-calendarLookbackDays)
	items, err := s.Appointments.List(ctx, appointments.ListFilter{ProviderID: providerID, From: from, Limit: calendarMaxEvents})
	if err != nil {
		s.logAppError(log, "provider calendar", err, slog.String("provider_id", providerID))
		transport.WriteAppError(w, err)
		return
	}

	body := calendar.Feed("Appointments", items, s.location(), now)
	log.Info("provider calendar: ok", slog.String("provider_id", providerID), slog.Int("appointments", len(items)))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
