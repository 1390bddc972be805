package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Service         BookingService
	TherapyReasonID int
	JWTSecret       string
	PgPool          *pgxpool.Pool
	Redis           *redis.Client
	Env             string
	Version         string
	Log             zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service, cfg.TherapyReasonID)
	staff := RequireRole(cfg.JWTSecret, RoleAdministrator, RoleCoordinator)

	// Public booking surface
	r.Post("/api/patients/search", h.SearchPatient)
	r.Post("/api/availability", h.GetAvailability)
	r.Post("/api/appointments", h.BookAppointment)
	r.Post("/api/series", h.BookSeries)

	// Staff-gated administration
	r.Group(func(r chi.Router) {
		r.Use(staff)
		r.Get("/api/appointments", h.ListAppointments)
		r.Put("/api/appointments/{id}/status", h.UpdateStatus)
		r.Put("/api/appointments/{id}", h.EditAppointment)
		r.Put("/api/series/occurrences/{appointmentID}", h.EditOccurrence)
		r.Delete("/api/series/{id}", h.CancelSeries)
		r.Get("/api/reports/weekly", h.WeeklyReport)
	})

	return r
}
