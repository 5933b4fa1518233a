package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/config"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
	"github.com/openclinic/clinic-scheduling/internal/mirror"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
)

type RouterConfig struct {
	Resolver   *availability.Resolver
	Bookings   *booking.Service
	Clinics    clinic.Repository
	Authorizer clinic.Authorizer
	Mirror     *mirror.Synchronizer
	Limiter    *redisclient.FixedWindowLimiter
	Metrics    *metrics.SchedulingMetrics
	RateLimits config.RateLimits
	Timeout    time.Duration
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TimeoutMiddleware(cfg.Timeout))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	limit := func(endpoint string, max int) func(http.Handler) http.Handler {
		return AdmissionMiddleware(cfg.Limiter, cfg.Metrics, endpoint, max)
	}

	r.Route("/v1/{tenant}", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.With(limit("list_slots", cfg.RateLimits.ListSlots)).
				Get("/slots", listSlotsHandler(cfg.Resolver, cfg.Metrics))
			r.With(limit("public_mirror", cfg.RateLimits.PublicMirror)).
				Get("/mirror", publicMirrorHandler(cfg.Mirror))
			r.With(limit("create_booking", cfg.RateLimits.CreateBooking)).
				Post("/bookings", createBookingHandler(cfg.Bookings, cfg.Metrics))

			r.Route("/manage/{token}", func(r chi.Router) {
				r.Use(limit("manage_booking", cfg.RateLimits.ManageBooking))
				r.Get("/", manageContextHandler(cfg.Bookings))
				r.Post("/cancel", cancelByTokenHandler(cfg.Bookings, cfg.Metrics))
				r.Post("/reschedule", rescheduleByTokenHandler(cfg.Bookings, cfg.Metrics))
			})
		})

		r.Route("/staff", func(r chi.Router) {
			write := RequirePermission(cfg.Authorizer, clinic.PermScheduleWrite)
			manage := RequirePermission(cfg.Authorizer, clinic.PermScheduleManage)
			settings := RequirePermission(cfg.Authorizer, clinic.PermSettingsWrite)

			r.With(write).Post("/appointments", staffCreateAppointmentHandler(cfg.Bookings, cfg.Authorizer, cfg.Metrics))
			r.With(write).Post("/appointments/{id}/reschedule", staffRescheduleHandler(cfg.Bookings, cfg.Authorizer, cfg.Metrics))
			r.With(write).Put("/appointments/{id}/status", staffUpdateStatusHandler(cfg.Bookings, cfg.Metrics))
			r.With(write).Patch("/appointments/{id}", staffUpdateDetailsHandler(cfg.Bookings, cfg.Metrics))
			r.With(manage).Delete("/appointments/{id}", staffDeleteAppointmentHandler(cfg.Bookings, cfg.Metrics))

			r.With(manage).Post("/closures", createClosureHandler(cfg.Clinics))
			r.With(manage).Put("/closures/{id}/active", setClosureActiveHandler(cfg.Clinics))

			r.With(settings).Put("/settings", putSettingsHandler(cfg.Clinics, cfg.Mirror))
		})
	})

	return r
}
