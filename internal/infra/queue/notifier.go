package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"suggestion-bot/internal/domain"
)

// Notifier ставит уведомления в очередь для отдельного воркера.
type Notifier struct {
	queue domain.NotificationQueue
	now   func() time.Time
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт нотификатор поверх очереди.
func NewNotifier(queue domain.NotificationQueue) *Notifier {
	return &Notifier{queue: queue, now: time.Now}
}

// Notify реализует domain.Notifier.
func (n *Notifier) Notify(ctx context.Context, req domain.NotificationRequest) error {
	job := domain.NotificationJob{
		ID:          uuid.NewString(),
		Request:     req,
		RequestedAt: n.now().UTC(),
	}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
