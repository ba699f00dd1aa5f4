package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/openhearth/calendard/internal/app"
	"github.com/openhearth/calendard/internal/clock"
	"github.com/openhearth/calendard/internal/config"
	"github.com/openhearth/calendard/internal/domain"
	"github.com/openhearth/calendard/internal/storage/ics"
	"github.com/openhearth/calendard/internal/storage/postgres"
	transporthttp "github.com/openhearth/calendard/internal/transport/http"
	"github.com/openhearth/calendard/migrations"
)

const startupTimeout = 15 * time.Second
const refreshTimeout = 30 * time.Second
const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLog, err := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		log.Fatalf("setup logger: %v", err)
	}
	defer func() { _ = closeLog() }()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("resolve timezone: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	registry := app.NewRegistry()
	storeMux := app.NewStoreMux()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect to db: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			log.Fatalf("db ping: %v", err)
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}

		calRepo := postgres.NewCalendarRepository(pool)
		if cfg.SeedDemo {
			if err := calRepo.SeedDemo(startupCtx, time.Now().In(loc)); err != nil {
				log.Fatalf("seed demo data: %v", err)
			}
		}

		eventRepo := postgres.NewEventRepository(pool, loc)
		calendars, err := calRepo.ListCalendars(startupCtx)
		if err != nil {
			log.Fatalf("list calendars: %v", err)
		}
		for _, cal := range calendars {
			registry.Add(cal)
			storeMux.Route(cal.EntityID, eventRepo)
		}
		logger.Info("database calendars registered", "count", len(calendars))
	}

	var scheduler *cron.Cron
	if len(cfg.ICSSources) > 0 {
		sources := make([]ics.Source, 0, len(cfg.ICSSources))
		for _, src := range cfg.ICSSources {
			sources = append(sources, ics.Source{EntityID: src.EntityID, Name: src.Name, URL: src.URL})
		}
		feedStore := ics.NewStore(sources, logger)
		for _, src := range sources {
			registry.Add(domain.Calendar{EntityID: src.EntityID, Name: src.Name})
			storeMux.Route(src.EntityID, feedStore)
		}

		if err := feedStore.Refresh(startupCtx); err != nil {
			logger.Warn("initial feed refresh incomplete", "error", err)
		}

		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			if err := feedStore.Refresh(ctx); err != nil {
				logger.Warn("feed refresh incomplete", "error", err)
			}
		})
		if err != nil {
			log.Fatalf("schedule feed refresh: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("ics feeds registered", "count", len(sources), "schedule", cfg.RefreshSchedule)
	}

	querier := app.NewQueryService(storeMux)
	resolver := app.NewRangeResolver(loc)
	intentSvc := app.NewIntentService(registry, querier, clock.NewSystem(), loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/api/calendars", transporthttp.HandleListCalendars(registry))
	mux.Handle("/api/calendars/", transporthttp.HandleCalendarEvents(querier))
	mux.Handle("/api/calendar/get_events", transporthttp.HandleGetEvents(resolver, querier, clock.NewSystem()))
	mux.Handle("/api/intent/get_events", transporthttp.HandleIntentGetEvents(intentSvc))
	mux.Handle("/api/websocket", transporthttp.NewWSHandler(registry, querier, logger))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
	}

	logger.Info("calendard listening", "addr", cfg.Listen)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
