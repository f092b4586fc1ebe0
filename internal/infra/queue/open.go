package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"suggestion-bot/internal/domain"
)

// Open возвращает очередь уведомлений по имени бэкенда.
// Для "direct" возвращает nil: уведомления доставляются в процессе шлюза.
func Open(backend string, redisClient *redis.Client, rabbitURL, key string) (domain.NotificationQueue, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "direct":
		return nil, noop, nil
	case "redis":
		if redisClient == nil {
			return nil, noop, errors.New("redis queue: REDIS_ADDR is empty")
		}
		return NewRedisNotificationQueue(redisClient, key), noop, nil
	case "rabbitmq":
		q, err := NewRabbitNotificationQueue(rabbitURL, key)
		if err != nil {
			return nil, noop, err
		}
		return q, q.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown notify backend %q", backend)
}
