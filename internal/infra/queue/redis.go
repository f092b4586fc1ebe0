package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

// RedisNotificationQueue реализует очередь уведомлений на базе Redis lists.
// Полученная задача переносится в список processing и удаляется оттуда после подтверждения.
type RedisNotificationQueue struct {
	client     *redis.Client
	key        string
	processing string
}

var _ domain.NotificationQueue = (*RedisNotificationQueue)(nil)

// NewRedisNotificationQueue создаёт очередь по указанному ключу.
func NewRedisNotificationQueue(client *redis.Client, key string) *RedisNotificationQueue {
	return &RedisNotificationQueue{client: client, key: key, processing: key + ":processing"}
}

// Enqueue публикует задачу в очередь.
func (q *RedisNotificationQueue) Enqueue(ctx context.Context, job domain.NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisNotificationQueue) Receive(ctx context.Context) (domain.NotificationJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.NotificationJob{}, nil, err
		}

		raw, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", time.Second).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.NotificationJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.NotificationJob{}, nil, err
		}
		var job domain.NotificationJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			_ = q.client.LRem(context.WithoutCancel(ctx), q.processing, 1, raw).Err()
			return domain.NotificationJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		return job, q.ack(ctx, raw), nil
	}
}

func (q *RedisNotificationQueue) ack(ctx context.Context, raw string) domain.AckFunc {
	ctx = context.WithoutCancel(ctx)
	return func(success bool) error {
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.processing, 1, raw)
		if !success {
			pipe.RPush(ctx, q.key, raw)
		}
		start := time.Now()
		_, err := pipe.Exec(ctx)
		metrics.ObserveNetworkRequest("redis", "ack", q.key, start, err)
		return err
	}
}

// Recover возвращает в очередь задачи, оставшиеся в processing после аварийной остановки воркера.
// Рассчитан на один воркер: задачи, которые прямо сейчас обрабатывает другой, тоже вернутся.
func (q *RedisNotificationQueue) Recover(ctx context.Context) (int, error) {
	return requeue(ctx, q.client, q.processing, q.key)
}

type listMover interface {
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
}

// requeue переносит элементы from в хвост to, сохраняя порядок чтения.
func requeue(ctx context.Context, c listMover, from, to string) (int, error) {
	moved := 0
	for {
		start := time.Now()
		err := c.LMove(ctx, from, to, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			metrics.ObserveNetworkRequest("redis", "lmove", from, start, nil)
			return moved, nil
		}
		metrics.ObserveNetworkRequest("redis", "lmove", from, start, err)
		if err != nil {
			return moved, fmt.Errorf("requeue %s: %w", from, err)
		}
		moved++
	}
}
