package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

const deliveryTimeout = 15 * time.Second

// ErrUnknownPlatform: для платформы задачи нет доставщика.
var ErrUnknownPlatform = errors.New("unknown notification platform")

// Recoverer реализуют очереди, способные вернуть задачи, взятые до аварийной остановки.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

// Worker читает задачи из очереди и доставляет уведомления авторам.
// Ошибка доставки не влияет на сохранённое решение и не повторяется.
type Worker struct {
	queue      domain.NotificationQueue
	deliverers map[domain.Platform]domain.Notifier
	events     domain.BusinessMetricRepo
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewWorker создаёт воркер. events может быть nil.
func NewWorker(queue domain.NotificationQueue, deliverers map[domain.Platform]domain.Notifier, events domain.BusinessMetricRepo, log zerolog.Logger) *Worker {
	return &Worker{
		queue:      queue,
		deliverers: deliverers,
		events:     events,
		log:        log,
		retryDelay: time.Second,
	}
}

// Run обрабатывает задачи до отмены контекста.
func (w *Worker) Run(ctx context.Context) error {
	if r, ok := w.queue.(Recoverer); ok {
		n, err := r.Recover(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("notifier: не удалось вернуть незавершённые задачи")
		} else if n > 0 {
			w.log.Warn().Int("jobs", n).Msg("notifier: незавершённые задачи возвращены в очередь")
		}
	}
	for {
		job, ack, err := w.queue.Receive(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.log.Error().Err(err).Msg("notifier: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.retryDelay):
			}
			continue
		}
		w.Process(ctx, job, ack)
	}
}

// Process доставляет одно уведомление и подтверждает задачу.
func (w *Worker) Process(ctx context.Context, job domain.NotificationJob, ack domain.AckFunc) {
	logger := w.log.With().
		Str("job_id", job.ID).
		Str("platform", string(job.Request.Platform)).
		Str("presentation_id", job.Request.PresentationID).
		Logger()

	err := w.deliver(ctx, job.Request)
	if err != nil && ctx.Err() != nil {
		// остановка воркера: задача вернётся в очередь
		if ackErr := ack(false); ackErr != nil {
			logger.Error().Err(ackErr).Msg("notifier: не удалось вернуть задачу")
		}
		return
	}

	event := domain.BusinessMetricEventNotificationDelivered
	meta := map[string]any{"job_id": job.ID, "platform": job.Request.Platform, "outcome": job.Request.Outcome}
	if err != nil {
		event = domain.BusinessMetricEventNotificationFailed
		meta["error"] = err.Error()
		metrics.IncNotificationFailure("deliver")
		logger.Warn().Err(err).Str("author_id", job.Request.AuthorID).Msg("notifier: уведомление не доставлено")
	} else {
		logger.Info().Msg("notifier: уведомление доставлено")
	}
	w.record(ctx, job, event, meta)

	if ackErr := ack(true); ackErr != nil {
		logger.Error().Err(ackErr).Msg("notifier: не удалось подтвердить задачу")
	}
}

func (w *Worker) deliver(ctx context.Context, req domain.NotificationRequest) error {
	n, ok := w.deliverers[req.Platform]
	if !ok || n == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, req.Platform)
	}
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	return n.Notify(ctx, req)
}

func (w *Worker) record(ctx context.Context, job domain.NotificationJob, event string, meta map[string]any) {
	if w.events == nil {
		return
	}
	err := w.events.RecordBusinessMetric(ctx, domain.BusinessMetric{
		Event:          event,
		GuildID:        job.Request.GuildID,
		ChannelID:      job.Request.ChannelID,
		PresentationID: job.Request.PresentationID,
		Metadata:       meta,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		w.log.Warn().Err(err).Str("event", event).Msg("notifier: не удалось сохранить событие")
	}
}
