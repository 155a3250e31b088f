package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vetsync/vetsync/libs/db"
	otelx "github.com/vetsync/vetsync/libs/otel"
	"github.com/vetsync/vetsync/services/reminder-service/internal/email"
	"github.com/vetsync/vetsync/services/reminder-service/internal/sms"
	"github.com/vetsync/vetsync/services/reminder-service/internal/storage"
)

// ContactDirectory resolves an owner id to reachable addresses. Either
// value may be empty; the worker sends on whichever channels resolve.
type ContactDirectory interface {
	Lookup(ctx context.Context, ownerID string) (emailAddr string, phone string, err error)
}

type Worker struct {
	pool          *db.Pool
	repo          *Repository
	notifications *storage.Repository
	directory     ContactDirectory
	email         email.Sender
	sms           sms.Sender
	logger        *slog.Logger
	interval      time.Duration
	batchSize     int
	backoff       time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, notifications *storage.Repository, directory ContactDirectory, emailSender email.Sender, smsSender sms.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	return &Worker{
		pool:          pool,
		repo:          repo,
		notifications: notifications,
		directory:     directory,
		email:         emailSender,
		sms:           smsSender,
		logger:        logger,
		interval:      cfg.Interval,
		batchSize:     cfg.BatchSize,
		backoff:       cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	var sent []int64
	for _, job := range due {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)
		if err := w.deliver(jobCtx, job); err != nil {
			w.logger.Warn("reminder delivery failed",
				"appointment_id", job.AppointmentID, "window", job.Window, "err", err)
			attempts := job.Attempts + 1
			nextRunAt := time.Now().UTC().Add(w.backoff)
			if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, nextRunAt, err.Error()); err != nil {
				return err
			}
			continue
		}
		sent = append(sent, job.ID)
	}

	if err := w.repo.MarkSent(ctx, tx, sent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (w *Worker) deliver(ctx context.Context, job Job) error {
	emailAddr, phone, err := w.directory.Lookup(ctx, job.OwnerID)
	if err != nil {
		return fmt.Errorf("contact lookup: %w", err)
	}
	if emailAddr == "" && phone == "" {
		// Nothing to send to; recorded so staff can chase it up.
		w.record(ctx, job, "none", "", "skipped", "owner has no contact details")
		return nil
	}

	subject, body := reminderMessage(job)
	delivered := false
	if emailAddr != "" {
		if err := w.email.Send(emailAddr, subject, body); err != nil {
			w.record(ctx, job, "email", emailAddr, "failed", err.Error())
		} else {
			w.record(ctx, job, "email", emailAddr, "sent", "")
			delivered = true
		}
	}
	if phone != "" {
		if err := w.sms.Send(ctx, phone, body); err != nil {
			w.record(ctx, job, "sms", phone, "failed", err.Error())
		} else {
			w.record(ctx, job, "sms", phone, "sent", "")
			delivered = true
		}
	}
	if !delivered {
		return fmt.Errorf("all channels failed for appointment %s", job.AppointmentID)
	}
	return nil
}

func (w *Worker) record(ctx context.Context, job Job, channel, recipient, status, detail string) {
	err := w.notifications.Insert(ctx, storage.Notification{
		AppointmentID: job.AppointmentID,
		OwnerID:       job.OwnerID,
		Channel:       channel,
		Recipient:     recipient,
		Window:        job.Window,
		Status:        status,
		Detail:        detail,
	})
	if err != nil {
		w.logger.Error("record notification", "appointment_id", job.AppointmentID, "err", err)
	}
}

func reminderMessage(job Job) (subject string, body string) {
	lead := map[string]string{
		"1w": "next week",
		"1d": "tomorrow",
		"1h": "in one hour",
	}[job.Window]
	if lead == "" {
		lead = "soon"
	}
	subject = fmt.Sprintf("Reminder: %s's appointment %s", job.PetName, lead)
	body = fmt.Sprintf("%s has an appointment with %s on %s at %s. Reply to this message or call the clinic if you need to reschedule.",
		job.PetName, job.VetName, job.Date, job.Time)
	return subject, body
}
