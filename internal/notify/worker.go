package notify

import (
	"context"
	"log/slog"
	"time"
)

const batchSize = 50

// Worker polls the outbox and delivers pending notifications.
type Worker struct {
	store       *Store
	sender      Sender
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
}

func NewWorker(store *Store, sender Sender, logger *slog.Logger, interval time.Duration, maxAttempts int) *Worker {
	return &Worker{
		store:       store,
		sender:      sender,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("notification sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single delivery sweep.
func (w *Worker) RunOnce(ctx context.Context) error {
	due, err := w.store.DuePending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, n := range due {
		if err := w.sender.Send(ctx, n); err == nil {
			if err := w.store.MarkDelivered(ctx, n.ID); err != nil {
				return err
			}
			continue
		}

		attempts := n.Attempts + 1
		if attempts >= w.maxAttempts {
			w.logger.Warn("notification delivery exhausted, keeping in-app record",
				"id", n.ID, "attempts", attempts)
			if err := w.store.MarkInApp(ctx, n.ID, attempts); err != nil {
				return err
			}
			continue
		}

		// Exponential backoff: interval doubles with each attempt.
		delay := w.interval << attempts
		if err := w.store.Reschedule(ctx, n.ID, attempts, time.Now().Add(delay)); err != nil {
			return err
		}
		w.logger.Info("notification delivery failed, rescheduled",
			"id", n.ID, "attempts", attempts, "retry_in", delay)
	}
	return nil
}
