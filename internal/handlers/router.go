package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"tapdetail-backend/internal/auth"
	"tapdetail-backend/internal/availability"
	"tapdetail-backend/internal/catalog"
	"tapdetail-backend/internal/metrics"
	"tapdetail-backend/internal/middleware"
)

type RouterOptions struct {
	Availability *availability.Handler
	Catalog      *catalog.Handler
	Auth         *auth.Manager
	Metrics      *metrics.Metrics
	// BookingLimiter throttles public booking submissions per client IP.
	BookingLimiter *middleware.RateLimiter
}

func NewRouter(s *Server, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.Log))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	if s.Cfg != nil {
		r.Use(middleware.CORS(s.Cfg.FrontendOrigin))
	}
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.Healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	booking := func(next http.Handler) http.Handler { return next }
	if opts.BookingLimiter != nil {
		booking = opts.BookingLimiter.Middleware
	}
	providerAuth := middleware.ProviderAuth(opts.Auth)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/providers/{providerId}", func(p chi.Router) {
			p.Get("/slots", s.GetSlots)
			p.Get("/slots/next", s.GetNextSlot)
			p.With(booking).Post("/appointments", s.CreateAppointment)

			if opts.Catalog != nil {
				p.Get("/services", opts.Catalog.PublicList)
			}
			if opts.Availability != nil {
				p.Get("/availability", opts.Availability.Get)
				p.Group(func(owner chi.Router) {
					owner.Use(providerAuth, middleware.SameProvider("providerId"))
					owner.Put("/availability", opts.Availability.Update)
					owner.Post("/availability/blocked-dates/{date}", opts.Availability.BlockDate)
					owner.Delete("/availability/blocked-dates/{date}", opts.Availability.UnblockDate)
				})
			}
		})

		api.Get("/appointments/{id}", s.GetAppointment)

		api.Route("/provider", func(p chi.Router) {
			p.Use(providerAuth)
			p.Get("/appointments", s.ListProviderAppointments)
			p.Post("/appointments", s.CreateManualAppointment)
			p.Patch("/appointments/{id}/status", s.UpdateAppointmentStatus)
			p.Patch("/appointments/{id}/duration", s.UpdateAppointmentDuration)
			p.Delete("/appointments/{id}", s.DeleteAppointment)
			p.Get("/calendar.ics", s.ProviderCalendar)

			if opts.Catalog != nil {
				p.Post("/services", opts.Catalog.Create)
				p.Put("/services/{id}", opts.Catalog.Update)
				p.Delete("/services/{id}", opts.Catalog.Delete)
			}
		})
	})

	return r
}
