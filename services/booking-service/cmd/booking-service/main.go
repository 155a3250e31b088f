package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vetsync/vetsync/libs/config"
	"github.com/vetsync/vetsync/libs/db"
	"github.com/vetsync/vetsync/libs/httpx"
	"github.com/vetsync/vetsync/libs/kafkax"
	otelx "github.com/vetsync/vetsync/libs/otel"
	"github.com/vetsync/vetsync/libs/runtime"
	"github.com/vetsync/vetsync/services/booking-service/internal/followup"
	"github.com/vetsync/vetsync/services/booking-service/internal/handlers"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/notes"
	"github.com/vetsync/vetsync/services/booking-service/internal/outbox"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	readyChecks := []runtime.ReadyCheck{}

	// DATABASE_URL unset runs the clinic on the in-memory store with demo
	// fixtures; events then go to the log instead of the outbox.
	var store storage.Store
	var emitter outbox.Emitter
	dbURL := config.String("DATABASE_URL", "")
	if dbURL != "" {
		pool, err := db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		store = storage.NewPostgresStore(pool)
		outboxRepo := outbox.NewRepository(pool)
		emitter = outboxRepo
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		brokers := config.String("KAFKA_BROKERS", "")
		if brokers != "" {
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory store with demo fixtures")
		mem := storage.NewMemoryStore()
		mem.Seed(demoVets(), demoPets())
		store = mem
		emitter = outbox.NewLogEmitter(logger)
	}

	var generator notes.Generator
	if url := config.String("NOTES_WEBHOOK_URL", ""); url != "" {
		generator = notes.NewWebhookGenerator(url, config.String("NOTES_WEBHOOK_TOKEN", ""))
	} else {
		generator = notes.NewStaticGenerator()
	}
	logger.Info("notes generator configured", "provider", generator.ProviderID())

	booker := followup.NewAutoBooker(store, logger)
	clinicHandler := handlers.NewClinicHandler(store, emitter, generator, booker, logger)
	stripeHandler := handlers.NewStripeWebhookHandler(store, emitter, logger, handlers.StripeWebhookConfig{
		WebhookSecret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
		ToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	clinicHandler.Register(mux)
	mux.Handle("/api/v1/webhooks/stripe", stripeHandler)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
		limit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func demoVets() []model.Vet {
	return []model.Vet{
		{
			ID:         "vet-1",
			Name:       "Dr. Sarah Chen",
			Specialty:  "General Practice",
			ClinicName: "Maple Street Animal Hospital",
			Location:   "Portland, OR",
			Services: []model.ConsultationService{
				{Name: "General Checkup", BasePrice: 50, Type: model.ConsultInPerson},
				{Name: "Telehealth Consult", BasePrice: 35, Type: model.ConsultVirtual},
				{Name: "Vaccination Visit", BasePrice: 40, Type: model.ConsultInPerson},
			},
			Availability: model.WeeklyAvailability{
				"Monday":    {{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "17:00"}},
				"Tuesday":   {{Start: "09:00", End: "12:00"}},
				"Wednesday": {{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "17:00"}},
				"Friday":    {{Start: "09:00", End: "12:00"}},
			},
		},
		{
			ID:         "vet-2",
			Name:       "Dr. Miguel Torres",
			Specialty:  "Cardiology",
			ClinicName: "Maple Street Animal Hospital",
			Location:   "Portland, OR",
			Services: []model.ConsultationService{
				{Name: "Cardiology Consult", BasePrice: 120, Type: model.ConsultInPerson},
				{Name: "Echo Review Call", BasePrice: 60, Type: model.ConsultCall},
			},
			Availability: model.WeeklyAvailability{
				"Tuesday":  {{Start: "09:00", End: "17:00"}},
				"Thursday": {{Start: "09:00", End: "17:00"}},
			},
		},
	}
}

func demoPets() []model.Pet {
	return []model.Pet{
		{ID: "pet-1", Name: "Biscuit", Breed: "Beagle", Age: 4, OwnerID: "owner-1"},
		{ID: "pet-2", Name: "Mochi", Breed: "Domestic Shorthair", Age: 7, OwnerID: "owner-2"},
	}
}
