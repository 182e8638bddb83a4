package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/transport"
	"tapdetail-backend/internal/validation"
)

type Handler struct {
	menu *Menu
	val  *validation.Validator
	log  *slog.Logger
}

func NewHandler(menu *Menu, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{menu: menu, val: val, log: log}
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := strings.TrimSpace(chi.URLParam(r, "providerId"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.menu.List(ctx, providerID)
	if err != nil {
		log.Error("services list: storage error", slog.String("provider_id", providerID), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("services list: ok", slog.String("provider_id", providerID), slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"services": items,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())

	req, ok := h.decode(w, r, "services create")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.menu.Create(ctx, providerID, req)
	if err != nil {
		log.Warn("services create: failed", slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("services create: ok", slog.String("service_id", item.ID), slog.String("slug", item.Slug))
	transport.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	req, ok := h.decode(w, r, "services update")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.menu.Update(ctx, providerID, id, req)
	if err != nil {
		log.Warn("services update: failed", slog.String("service_id", id), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("services update: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	providerID := middleware.ProviderIDFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.menu.Delete(ctx, providerID, id); err != nil {
		log.Warn("services delete: failed", slog.String("service_id", id), slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	log.Info("services delete: ok", slog.String("service_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string) (ServiceRequest, bool) {
	var req ServiceRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		h.logWithRequest(r).Warn(op + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return ServiceRequest{}, false
	}
	if err := h.val.Struct(req); err != nil {
		h.logWithRequest(r).Warn(op + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return ServiceRequest{}, false
	}
	return req, true
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
