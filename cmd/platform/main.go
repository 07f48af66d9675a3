package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/stewardrx/platform/internal/analysis"
	"github.com/stewardrx/platform/internal/audit"
	"github.com/stewardrx/platform/internal/auth"
	"github.com/stewardrx/platform/internal/emr"
	"github.com/stewardrx/platform/internal/emr/legacy"
	"github.com/stewardrx/platform/internal/patient"
	"github.com/stewardrx/platform/internal/recommendation"
	sharedauth "github.com/stewardrx/platform/internal/shared/auth"
	"github.com/stewardrx/platform/internal/shared/config"
	"github.com/stewardrx/platform/internal/shared/database"
	"github.com/stewardrx/platform/internal/shared/events"
	"github.com/stewardrx/platform/internal/shared/logging"
	"github.com/stewardrx/platform/internal/shared/metrics"
	sharedmw "github.com/stewardrx/platform/internal/shared/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info().Msg("migrations applied")

	// Event bus: audit trail and downstream consumers hang off it
	var bus interface {
		events.Publisher
		events.Subscriber
		Close()
	} = events.NopBus{}
	if cfg.EventStore.Enabled {
		esBus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
		bus = esBus
	} else {
		log.Warn().Msg("event store disabled, audit trail will not record events")
	}
	defer bus.Close()

	// Repositories
	patientRepo := patient.NewRepository(db.Pool)
	userRepo := auth.NewRepository(db.Pool)
	dosingRepo := recommendation.NewRepository(db.Pool)
	auditRepo := audit.NewRepository(db.Pool)
	orderRepo := emr.NewRepository(db.Pool)

	// Recommendation provider
	var provider recommendation.Provider
	switch cfg.Recommendation.Provider {
	case "llm":
		provider = recommendation.NewLLMProvider(
			cfg.Recommendation.OpenAIKey,
			cfg.Recommendation.Model,
			cfg.Recommendation.MaxCandidates,
		)
	default:
		provider = recommendation.NewDosingEngine(dosingRepo, cfg.Recommendation.MaxCandidates)
	}
	log.Info().Str("provider", provider.Name()).Msg("recommendation provider configured")

	classifier := analysis.NewClassifier(cfg.Analysis.ExactThreshold, cfg.Analysis.PartialThreshold)
	aggregator := analysis.NewAggregator(patientRepo, provider, classifier, cfg.Analysis.Workers)

	// Audit subscriber tails the bus
	if cfg.EventStore.Enabled {
		subscriber := audit.NewSubscriber(bus, auditRepo)
		if err := subscriber.Start(ctx); err != nil {
			return fmt.Errorf("audit subscriber: %w", err)
		}
		log.Info().Msg("audit subscriber started")
	}

	// Legacy EMR importer
	if cfg.LegacyEMR.Enabled {
		adapter, err := legacy.NewAdapter(cfg.LegacyEMR, legacyImportHandler(patientRepo, bus))
		if err != nil {
			return fmt.Errorf("legacy EMR adapter: %w", err)
		}
		adapter.Start(ctx)
		defer adapter.Stop()
	}

	// Handlers
	authMW := sharedauth.NewMiddleware(cfg.Auth.JWTSecret)
	tokenIssuer := auth.NewTokenIssuer(cfg.Auth)
	authHandler := auth.NewHandler(userRepo, tokenIssuer)
	patientHandler := patient.NewHandler(patientRepo, bus)
	recHandler := recommendation.NewHandler(provider, patientRepo)
	analysisHandler := analysis.NewHandler(aggregator, bus)
	auditHandler := audit.NewHandler(auditRepo)
	emrHandler := emr.NewHandler(orderRepo, bus)

	router := newRouter(cfg, db, authMW, authHandler, patientHandler, recHandler,
		analysisHandler, auditHandler, emrHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(
	cfg *config.Config,
	db *database.DB,
	authMW *sharedauth.Middleware,
	authHandler *auth.Handler,
	patientHandler *patient.Handler,
	recHandler *recommendation.Handler,
	analysisHandler *analysis.Handler,
	auditHandler *audit.Handler,
	emrHandler *emr.Handler,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(logging.RequestLogger)
	r.Use(metrics.Middleware)
	r.Use(sharedmw.SecurityHeaders)
	r.Use(sharedmw.CORS([]string{"*"}))
	r.Use(sharedmw.MaxBodySize(1 << 20))

	limiter := sharedmw.NewIPRateLimiter(rate.Limit(20), 40)
	r.Use(limiter.Limit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMW))

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			patients := patientHandler.Routes()
			recHandler.Mount(patients)
			r.Mount("/patients", patients)

			r.Mount("/analysis", analysisHandler.Routes())
			r.Mount("/emr", emrHandler.Routes())

			r.With(authMW.RequireRole(auth.RoleAdmin)).Mount("/audit", auditHandler.Routes())
		})
	})

	return r
}

// legacyImportHandler updates patient records from prescriptions pulled
// out of the hospital information system.
func legacyImportHandler(patients *patient.Repository, bus events.Publisher) legacy.Handler {
	return func(ctx context.Context, batch []legacy.Prescription) error {
		for _, rx := range batch {
			p, err := patients.GetByPatientID(ctx, rx.PatientID)
			if err != nil {
				log.Warn().Err(err).Str("patient_id", rx.PatientID).
					Msg("legacy prescription for unknown patient skipped")
				continue
			}

			line := fmt.Sprintf("%s %s %s %s", rx.Route, rx.Antibiotic, rx.Dose, rx.Frequency)
			if _, err := patients.Update(ctx, p.ID, &patient.UpdateRequest{Antibiotics: &line}); err != nil {
				return fmt.Errorf("failed to apply legacy prescription: %w", err)
			}

			event := events.NewEvent("emr.prescription.imported", "emr.legacy", map[string]any{
				"patient_id":   rx.PatientID,
				"external_ref": rx.ExternalRef,
				"antibiotic":   rx.Antibiotic,
			})
			if err := bus.Publish(ctx, event); err != nil {
				log.Warn().Err(err).Msg("failed to publish import event")
			}
		}
		return nil
	}
}
