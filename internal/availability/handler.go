package availability

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/cache"
	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/schedule"
	"tapdetail-backend/internal/transport"
	"tapdetail-backend/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
	cache   cache.Cache
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, store cache.Cache) *Handler {
	if store == nil {
		store = cache.NewNoop()
	}
	return &Handler{
		service: service,
		val:     val,
		log:     log,
		cache:   store,
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.service.Get(ctx, providerID)
	if err != nil {
		log.Error("availability get: storage error", slog.String("provider_id", providerID), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("availability update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("availability update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.service.Update(ctx, providerID, req.ToAvailability())
	if err != nil {
		if apperr.Is(err, apperr.InvalidConfiguration) {
			log.Warn("availability update: rejected", slog.String("provider_id", providerID), slog.String("error", err.Error()))
		} else {
			log.Error("availability update: storage error", slog.String("provider_id", providerID), slog.String("error", err.Error()))
		}
		transport.WriteAppError(w, err)
		return
	}

	h.invalidateSlots(r, providerID)
	log.Info("availability update: ok", slog.String("provider_id", providerID))
	transport.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) BlockDate(w http.ResponseWriter, r *http.Request) {
	h.editBlockedDate(w, r, "availability block", h.service.BlockDate)
}

func (h *Handler) UnblockDate(w http.ResponseWriter, r *http.Request) {
	h.editBlockedDate(w, r, "availability unblock", h.service.UnblockDate)
}

func (h *Handler) editBlockedDate(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	edit func(context.Context, string, schedule.Date) (schedule.Availability, error),
) {
	log := h.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))

	date, err := schedule.ParseDate(strings.TrimSpace(chi.URLParam(r, "date")))
	if err != nil {
		log.Warn(op + ": invalid date")
		transport.WriteError(w, http.StatusBadRequest, "invalid date", map[string]string{"date": "date"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cfg, err := edit(ctx, providerID, date)
	if err != nil {
		log.Error(op+": storage error", slog.String("provider_id", providerID), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	h.invalidateSlots(r, providerID)
	log.Info(op+": ok", slog.String("provider_id", providerID), slog.String("date", date.String()))
	transport.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) invalidateSlots(r *http.Request, providerID string) {
	if err := h.cache.DeletePrefix(r.Context(), cache.SlotsPrefix(providerID)); err != nil {
		h.logWithRequest(r).Warn("availability cache: invalidate failed", slog.String("provider_id", providerID), slog.String("error", err.Error()))
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
