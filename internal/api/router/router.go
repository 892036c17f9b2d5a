// Package router assembles the portal's HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborview-health/patient-portal/internal/http/handlers"
	httpmiddleware "github.com/harborview-health/patient-portal/internal/http/middleware"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger    *logging.Logger
	Booking   *handlers.BookingHandler
	Directory *handlers.DirectoryHandler
	Health    *handlers.HealthHandler

	MetricsHandler     http.Handler
	PatientJWTSecret   string
	CORSAllowedOrigins []string

	// Per-IP rate limiting on the booking routes; zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Directory != nil {
			public.Get("/providers", cfg.Directory.ListProviders)
			public.Get("/departments", cfg.Directory.ListDepartments)
		}
	})

	// Patient endpoints
	if cfg.Booking != nil {
		r.Group(func(patient chi.Router) {
			patient.Use(httpmiddleware.PatientJWT(cfg.PatientJWTSecret))
			if cfg.RateLimitPerSecond > 0 {
				patient.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}

			patient.Route("/booking/sessions", func(br chi.Router) {
				br.Post("/", cfg.Booking.CreateSession)
				br.Route("/{sessionID}", func(sr chi.Router) {
					sr.Get("/", cfg.Booking.GetSession)
					sr.Put("/patient-info", cfg.Booking.UpdatePatientInfo)
					sr.Put("/selection", cfg.Booking.UpdateSelection)
					sr.Post("/directory/retry", cfg.Booking.RetryDirectory)
					sr.Put("/details", cfg.Booking.UpdateDetails)
					sr.Get("/slots", cfg.Booking.ListSlots)
					sr.Post("/slots/select", cfg.Booking.SelectSlot)
					sr.Post("/advance", cfg.Booking.Advance)
					sr.Post("/back", cfg.Booking.Back)
					sr.Post("/submit", cfg.Booking.Submit)
					sr.Get("/confirmation", cfg.Booking.GetConfirmation)
					sr.Post("/modify", cfg.Booking.Modify)
					sr.Put("/modification", cfg.Booking.SaveModification)
					sr.Post("/cancel", cfg.Booking.RequestCancel)
					sr.Post("/cancel/confirm", cfg.Booking.ConfirmCancel)
					sr.Post("/done", cfg.Booking.Done)
					sr.Post("/abandon", cfg.Booking.Abandon)
				})
			})
		})
	}

	return r
}
