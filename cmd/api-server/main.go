package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openclinic/clinic-scheduling/internal/api"
	"github.com/openclinic/clinic-scheduling/internal/availability"
	"github.com/openclinic/clinic-scheduling/internal/booking"
	"github.com/openclinic/clinic-scheduling/internal/clinic"
	"github.com/openclinic/clinic-scheduling/internal/config"
	"github.com/openclinic/clinic-scheduling/internal/db"
	"github.com/openclinic/clinic-scheduling/internal/metrics"
	"github.com/openclinic/clinic-scheduling/internal/mirror"
	"github.com/openclinic/clinic-scheduling/internal/notify"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	clinics := clinic.NewPgRepository(pgPool)
	bookings := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	limiter := redisclient.NewFixedWindowLimiter(rdb, cfg.RateLimits.Window)

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName); sg != nil {
		sender = sg
		log.Println("sendgrid sender configured")
	} else {
		log.Println("SENDGRID_API_KEY not set, patient emails disabled")
	}
	notifier := notify.NewBookingNotifier(sender, cfg.ManageBaseURL)

	bookingSvc := booking.NewService(bookings, clinics, locker, notifier)
	resolver := availability.NewResolver(clinics, bookings)
	sync := mirror.NewSynchronizer(clinics, mirror.NewPgStore(pgPool))
	schedMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	router := api.NewRouter(api.RouterConfig{
		Resolver:   resolver,
		Bookings:   bookingSvc,
		Clinics:    clinics,
		Authorizer: clinic.NewRepoAuthorizer(clinics),
		Mirror:     sync,
		Limiter:    limiter,
		Metrics:    schedMetrics,
		RateLimits: cfg.RateLimits,
		Timeout:    cfg.RequestTimeout,
		PgPool:     pgPool,
		Redis:      rdb,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}

	log.Println("api-server stopped")
}
