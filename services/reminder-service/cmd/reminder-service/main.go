package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/vetsync/vetsync/libs/config"
	"github.com/vetsync/vetsync/libs/db"
	"github.com/vetsync/vetsync/libs/httpx"
	"github.com/vetsync/vetsync/libs/kafkax"
	otelx "github.com/vetsync/vetsync/libs/otel"
	"github.com/vetsync/vetsync/libs/runtime"
	"github.com/vetsync/vetsync/services/reminder-service/internal/consumer"
	"github.com/vetsync/vetsync/services/reminder-service/internal/email"
	"github.com/vetsync/vetsync/services/reminder-service/internal/inbox"
	"github.com/vetsync/vetsync/services/reminder-service/internal/jobs"
	"github.com/vetsync/vetsync/services/reminder-service/internal/sms"
	"github.com/vetsync/vetsync/services/reminder-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// reminderRequested mirrors booking.reminder.requested.v1.
type reminderRequested struct {
	AppointmentID string    `json:"appointment_id"`
	OwnerID       string    `json:"owner_id"`
	PetName       string    `json:"pet_name"`
	VetName       string    `json:"vet_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Window        string    `json:"window"`
	SendAt        time.Time `json:"send_at"`
}

// appointmentEvent carries the fields shared by the lifecycle topics.
type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
}

func main() {
	service := config.String("SERVICE_NAME", "reminder-service")
	port, err := config.Port("PORT", "8084")
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	jobsRepo := jobs.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	directory := storage.NewOwnerDirectory(pool)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
	)
	var smsSender sms.Sender
	if smsURL := config.String("SMS_WEBHOOK_URL", ""); smsURL != "" {
		smsSender = sms.NewWebhookSender(smsURL, config.String("SMS_WEBHOOK_TOKEN", ""), config.String("SMS_SENDER_NAME", ""))
	} else {
		smsSender = sms.NewNoopSender()
	}
	logger.Info("sms sender configured", "provider", smsSender.ProviderID())

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "reminder-service")

	requestedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "booking.reminder.requested.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload reminderRequested
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid reminder payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.AppointmentID == "" || payload.Window == "" || payload.SendAt.IsZero() {
			logger.Error("missing required reminder fields", "topic", msg.Topic)
			return nil
		}
		return jobsRepo.Insert(ctx, jobs.Job{
			AppointmentID: payload.AppointmentID,
			OwnerID:       payload.OwnerID,
			PetName:       payload.PetName,
			VetName:       payload.VetName,
			Date:          payload.Date,
			Time:          payload.Time,
			Window:        payload.Window,
			SendAt:        payload.SendAt,
		})
	})
	go requestedConsumer.Run(ctx)

	// Cancellation and completion both retire any reminders still queued
	// for the appointment.
	for _, topic := range []string{
		"booking.appointment.cancelled.v1",
		"booking.appointment.completed.v1",
	} {
		retireConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload appointmentEvent
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid appointment payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.AppointmentID == "" {
				return nil
			}
			return jobsRepo.CancelForAppointment(ctx, payload.AppointmentID)
		})
		go retireConsumer.Run(ctx)
	}

	worker := jobs.NewWorker(pool, jobsRepo, notificationsRepo, directory, emailSender, smsSender, logger, jobs.WorkerConfig{
		Interval:  time.Duration(config.Int("WORKER_INTERVAL_SECONDS", 5)) * time.Second,
		BatchSize: config.Int("WORKER_BATCH_SIZE", 50),
		Backoff:   time.Duration(config.Int("WORKER_BACKOFF_SECONDS", 60)) * time.Second,
	})
	go worker.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reminder")
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
