package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tapdetail-backend/internal/transport"
)

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.Checks))
	for name, check := range s.Checks {
		if err := check.Ping(ctx); err != nil {
			s.logWithRequest(r).Warn("healthz: check failed", slog.String("check", name), slog.String("error", err.Error()))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	transport.WriteJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
