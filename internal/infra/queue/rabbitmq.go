package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

// RabbitNotificationQueue реализует очередь уведомлений через AMQP.
type RabbitNotificationQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.NotificationQueue = (*RabbitNotificationQueue)(nil)

// NewRabbitNotificationQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitNotificationQueue(amqpURL, queue string) (*RabbitNotificationQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitNotificationQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Close закрывает соединение с брокером.
func (q *RabbitNotificationQueue) Close() error {
	return q.conn.Close()
}

// Enqueue публикует задачу в очередь.
func (q *RabbitNotificationQueue) Enqueue(ctx context.Context, job domain.NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

func (q *RabbitNotificationQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RabbitNotificationQueue) Receive(ctx context.Context) (domain.NotificationJob, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.NotificationJob{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.NotificationJob{}, nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return domain.NotificationJob{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			var job domain.NotificationJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				_ = d.Nack(false, false)
				metrics.ObserveNetworkRequest("rabbitmq", "decode", q.queue, time.Now(), err)
				continue
			}
			return job, func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, true)
			}, nil
		}
	}
}
