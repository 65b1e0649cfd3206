package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking and appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeConsultationHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/no-show", markNoShowHandler(cfg.Service))

	// Doctor views
	r.Get("/doctors/{id}", doctorHandler(cfg.Service))
	r.Get("/doctors/{id}/slots", daySlotsHandler(cfg.Service))
	r.Get("/doctors/{id}/queue", dayQueueHandler(cfg.Service))

	return r
}
