package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event          string
	GuildID        string
	ChannelID      string
	PresentationID string
	Metadata       map[string]any
	OccurredAt     time.Time
}

const (
	// BusinessMetricEventSuggestionCreated фиксирует появление нового предложения.
	BusinessMetricEventSuggestionCreated = "suggestion_created"
	// BusinessMetricEventSuggestionDecided фиксирует решение модератора.
	BusinessMetricEventSuggestionDecided = "suggestion_decided"
	// BusinessMetricEventNotificationDelivered фиксирует доставку уведомления автору.
	BusinessMetricEventNotificationDelivered = "notification_delivered"
	// BusinessMetricEventNotificationFailed фиксирует неудачную доставку уведомления.
	BusinessMetricEventNotificationFailed = "notification_failed"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
